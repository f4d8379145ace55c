package disputes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const maxTextLength = 2000

type OpenDisputeInput struct {
	OrderID     uuid.UUID
	ActorID     uuid.UUID
	Type        enums.DisputeType
	Description string
}

func (in *OpenDisputeInput) validate() error {
	if in.OrderID == uuid.Nil || in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order and actor are required")
	}
	if !in.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown dispute type").
			WithDetails(map[string]any{"type": in.Type})
	}
	return validateText("description", &in.Description, true)
}

// UpdateDisputeInput moves a dispute to Status. SellerResponse accompanies
// SELLER_RESPONDED; Resolution and RefundAmountCents are admin fields.
type UpdateDisputeInput struct {
	DisputeID         uuid.UUID
	ActorID           uuid.UUID
	Status            enums.DisputeStatus
	SellerResponse    *string
	Resolution        *string
	RefundAmountCents *int64
}

func (in *UpdateDisputeInput) validate() error {
	if in.DisputeID == uuid.Nil || in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute and actor are required")
	}
	if !in.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown dispute status").
			WithDetails(map[string]any{"status": in.Status})
	}
	if err := validateText("seller_response", in.SellerResponse, false); err != nil {
		return err
	}
	return validateText("resolution", in.Resolution, false)
}

type RequestReturnInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  enums.ReturnReason
	Details *string
}

func (in *RequestReturnInput) validate() error {
	if in.OrderID == uuid.Nil || in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order and actor are required")
	}
	if !in.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown return reason").
			WithDetails(map[string]any{"reason": in.Reason})
	}
	return validateText("details", in.Details, false)
}

type UpdateReturnInput struct {
	ReturnID          uuid.UUID
	ActorID           uuid.UUID
	Status            enums.ReturnStatus
	Note              *string
	RefundAmountCents *int64
}

func (in *UpdateReturnInput) validate() error {
	if in.ReturnID == uuid.Nil || in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return and actor are required")
	}
	if !in.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown return status").
			WithDetails(map[string]any{"status": in.Status})
	}
	return validateText("note", in.Note, false)
}

// validateText trims value in place and bounds its length.
func validateText(field string, value *string, required bool) error {
	if value == nil {
		if required {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
		return nil
	}
	*value = strings.TrimSpace(*value)
	if *value == "" && required {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
	}
	if len(*value) > maxTextLength {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" is too long").
			WithDetails(map[string]any{"max_length": maxTextLength})
	}
	return nil
}

// checkRefundAmount bounds a refund by what the buyer actually paid.
func checkRefundAmount(amount *int64, order *models.Order) error {
	if amount == nil {
		return nil
	}
	if *amount < 0 || *amount > order.TotalCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be between 0 and the order total").
			WithDetails(map[string]any{"refund_amount_cents": *amount, "total_cents": order.TotalCents})
	}
	return nil
}

// Event is the payload of dispute.* and return.* notifications.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	Kind        string         `json:"kind"`
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	BuyerID     uuid.UUID      `json:"buyer_id"`
	SellerIDs   []uuid.UUID    `json:"seller_ids"`
	Status      string         `json:"status"`
	Previous    string         `json:"previous_status,omitempty"`
	ActorID     *uuid.UUID     `json:"actor_id,omitempty"`
	ActorRole   enums.UserRole `json:"actor_role"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func (e Event) Recipients() []uuid.UUID {
	return append([]uuid.UUID{e.BuyerID}, e.SellerIDs...)
}

func (e Event) Subject() (uuid.UUID, string) {
	return e.OrderID, e.OrderNumber
}

func (e Event) Summary() string {
	if e.Previous == "" {
		return fmt.Sprintf("%s on order %s is %s", e.Kind, e.OrderNumber, e.Status)
	}
	return fmt.Sprintf("%s on order %s moved from %s to %s", e.Kind, e.OrderNumber, e.Previous, e.Status)
}
