package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type createFromCartRequest struct {
	AddressID     uuid.UUID `json:"address_id" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	Notes         *string   `json:"notes" validate:"omitempty,max=2000"`
}

func (r createFromCartRequest) toInput(userID uuid.UUID) internalorders.CreateFromCartInput {
	return internalorders.CreateFromCartInput{
		UserID:        userID,
		AddressID:     r.AddressID,
		PaymentMethod: parsePaymentMethod(r.PaymentMethod),
		Notes:         r.Notes,
	}
}

type createFromQuoteRequest struct {
	QuoteID       uuid.UUID `json:"quote_id" validate:"required"`
	AddressID     uuid.UUID `json:"address_id" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	Notes         *string   `json:"notes" validate:"omitempty,max=2000"`
	Quantity      *int      `json:"quantity" validate:"omitempty,gt=0"`
}

func (r createFromQuoteRequest) toInput(userID uuid.UUID) internalorders.CreateFromQuoteInput {
	return internalorders.CreateFromQuoteInput{
		UserID:        userID,
		QuoteID:       r.QuoteID,
		AddressID:     r.AddressID,
		PaymentMethod: parsePaymentMethod(r.PaymentMethod),
		Notes:         r.Notes,
		Quantity:      r.Quantity,
	}
}

type updateStatusRequest struct {
	Status            string     `json:"status" validate:"required"`
	Note              *string    `json:"note" validate:"omitempty,max=2000"`
	TrackingNumber    *string    `json:"tracking_number" validate:"omitempty,notblank,max=128"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

type cancelRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

type paymentRequest struct {
	MethodRef *string `json:"method_ref" validate:"omitempty,max=255"`
}

type refundRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

func parsePaymentMethod(raw string) enums.PaymentMethod {
	return enums.PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
}
