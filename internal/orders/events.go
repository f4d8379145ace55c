package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// OrderEvent is the payload of every order.* notification.
type OrderEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    string              `json:"order_number"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	SellerIDs      []uuid.UUID         `json:"seller_ids"`
	Status         enums.OrderStatus   `json:"status"`
	PreviousStatus *enums.OrderStatus  `json:"previous_status,omitempty"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	TotalCents     int64               `json:"total_cents"`
	ActorID        *uuid.UUID          `json:"actor_id,omitempty"`
	ActorRole      enums.UserRole      `json:"actor_role"`
	Note           *string             `json:"note,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// Recipients are the buyer followed by every seller of the order.
func (e OrderEvent) Recipients() []uuid.UUID {
	return append([]uuid.UUID{e.BuyerID}, e.SellerIDs...)
}

func (e OrderEvent) Subject() (uuid.UUID, string) {
	return e.OrderID, e.OrderNumber
}

func (e OrderEvent) Summary() string {
	if e.PreviousStatus == nil {
		return fmt.Sprintf("Order %s was placed (%s)", e.OrderNumber, e.Status)
	}
	return fmt.Sprintf("Order %s moved from %s to %s", e.OrderNumber, *e.PreviousStatus, e.Status)
}

func newOrderEvent(order *models.Order, previous *enums.OrderStatus, actor Actor, note *string, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		BuyerID:        order.UserID,
		SellerIDs:      SellerIDs(order),
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentStatus:  order.PaymentStatus,
		TotalCents:     order.TotalCents,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		Note:           note,
		OccurredAt:     at,
	}
}

func (s *service) emit(ctx context.Context, event enums.NotificationEvent, payload OrderEvent) {
	s.notifier.Notify(ctx, event, payload)
}
