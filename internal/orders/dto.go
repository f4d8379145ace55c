package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// CreateFromCartInput carries the checkout request of a buyer.
type CreateFromCartInput struct {
	UserID        uuid.UUID
	AddressID     uuid.UUID
	PaymentMethod enums.PaymentMethod
	Notes         *string
}

func (in CreateFromCartInput) validate() error {
	return validateCreate(in.UserID, in.AddressID, in.PaymentMethod)
}

// CreateFromQuoteInput turns one accepted negotiation into an order.
// Quantity overrides the granted quantity when set; it may not exceed it.
type CreateFromQuoteInput struct {
	UserID        uuid.UUID
	QuoteID       uuid.UUID
	AddressID     uuid.UUID
	PaymentMethod enums.PaymentMethod
	Notes         *string
	Quantity      *int
}

func (in CreateFromQuoteInput) validate() error {
	if in.QuoteID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote id is required")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithReason(pkgerrors.ReasonInvalidQuantity)
	}
	return validateCreate(in.UserID, in.AddressID, in.PaymentMethod)
}

func validateCreate(userID, addressID uuid.UUID, method enums.PaymentMethod) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if addressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]any{"payment_method": method})
	}
	return nil
}

// UpdateStatusInput requests a status change. Tracking fields only apply
// when moving to SHIPPED.
type UpdateStatusInput struct {
	OrderID           uuid.UUID
	ActorID           uuid.UUID
	Status            enums.OrderStatus
	Note              *string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
}

type ProcessPaymentInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	MethodRef *string
}

type RefundPaymentInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  *string
}

// PaymentResult pairs the updated order with the ledger row just appended.
type PaymentResult struct {
	Order       *models.Order
	Transaction *models.PaymentTransaction
}

// ListScope selects whose orders a listing returns.
type ListScope string

const (
	ListScopeBuyer  ListScope = "buyer"
	ListScopeSeller ListScope = "seller"
	ListScopeAll    ListScope = "all"
)

// ListFilter narrows an order listing. SellerID and BuyerID are honored for
// admins only.
type ListFilter struct {
	Scope    ListScope
	Status   *enums.OrderStatus
	From     *time.Time
	To       *time.Time
	SellerID *uuid.UUID
	BuyerID  *uuid.UUID
}

// Query is the repository-level filter. From is inclusive, To exclusive.
type Query struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *enums.OrderStatus
	From     *time.Time
	To       *time.Time
}

// StatsFilter narrows the aggregate statistics.
type StatsFilter struct {
	From     *time.Time
	To       *time.Time
	SellerID *uuid.UUID
}

// Stats aggregates order counts and revenue. Revenue counts orders whose
// payment is COMPLETED; for a seller scope only that seller's lines count.
type Stats struct {
	CountsByStatus         map[enums.OrderStatus]int64 `json:"counts_by_status"`
	TotalOrders            int64                       `json:"total_orders"`
	PaidOrders             int64                       `json:"paid_orders"`
	RevenueCents           int64                       `json:"revenue_cents"`
	AverageOrderValueCents int64                       `json:"average_order_value_cents"`
}

// SellerSegment is the slice of an order belonging to one seller.
type SellerSegment struct {
	SellerID      uuid.UUID          `json:"seller_id"`
	Items         []models.OrderItem `json:"-"`
	ItemCount     int                `json:"item_count"`
	SubtotalCents int64              `json:"subtotal_cents"`
}

// OrderView is an order as seen by one actor. Sellers only get their own
// segment.
type OrderView struct {
	Order      *models.Order
	Segments   []SellerSegment
	ViewerRole enums.UserRole
}

// SellerSegments splits the items of an order by seller, in the order the
// sellers first appear.
func SellerSegments(order *models.Order) []SellerSegment {
	index := make(map[uuid.UUID]int)
	var segments []SellerSegment
	for _, item := range order.Items {
		pos, ok := index[item.SellerID]
		if !ok {
			pos = len(segments)
			index[item.SellerID] = pos
			segments = append(segments, SellerSegment{SellerID: item.SellerID})
		}
		seg := &segments[pos]
		seg.Items = append(seg.Items, item)
		seg.ItemCount += item.Quantity
		seg.SubtotalCents += item.LineTotalCents()
	}
	return segments
}

func newOrderView(order *models.Order, role enums.UserRole, viewerID uuid.UUID) *OrderView {
	segments := SellerSegments(order)
	if role == enums.UserRoleSeller {
		own := segments[:0:0]
		for _, seg := range segments {
			if seg.SellerID == viewerID {
				own = append(own, seg)
			}
		}
		segments = own
	}
	return &OrderView{Order: order, Segments: segments, ViewerRole: role}
}
