package orders

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type orderItem struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	SellerID          uuid.UUID  `json:"seller_id"`
	Title             string     `json:"title"`
	Quantity          int        `json:"quantity"`
	PriceCents        int64      `json:"price_cents"`
	LineTotalCents    int64      `json:"line_total_cents"`
	IsCustomOrder     bool       `json:"is_custom_order"`
	CustomTitle       *string    `json:"custom_title,omitempty"`
	CustomDescription *string    `json:"custom_description,omitempty"`
	NegotiationID     *uuid.UUID `json:"negotiation_id,omitempty"`
}

type orderResponse struct {
	ID                 uuid.UUID            `json:"id"`
	OrderNumber        string               `json:"order_number"`
	UserID             uuid.UUID            `json:"user_id"`
	AddressID          uuid.UUID            `json:"address_id"`
	QuoteID            *uuid.UUID           `json:"quote_id,omitempty"`
	Status             enums.OrderStatus    `json:"status"`
	PaymentStatus      enums.PaymentStatus  `json:"payment_status"`
	DeliveryStatus     enums.DeliveryStatus `json:"delivery_status"`
	PaymentMethod      enums.PaymentMethod  `json:"payment_method"`
	SubtotalCents      int64                `json:"subtotal_cents"`
	ShippingCents      int64                `json:"shipping_cents"`
	TaxCents           int64                `json:"tax_cents"`
	DiscountCents      int64                `json:"discount_cents"`
	TotalCents         int64                `json:"total_cents"`
	Notes              *string              `json:"notes,omitempty"`
	CanReturn          bool                 `json:"can_return"`
	ReturnDeadline     *time.Time           `json:"return_deadline,omitempty"`
	HasDispute         bool                 `json:"has_dispute"`
	TrackingNumber     *string              `json:"tracking_number,omitempty"`
	EstimatedDelivery  *time.Time           `json:"estimated_delivery,omitempty"`
	ActualDelivery     *time.Time           `json:"actual_delivery,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	Items              []orderItem          `json:"items,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func newOrder(order *models.Order) *orderResponse {
	if order == nil {
		return nil
	}
	return &orderResponse{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		AddressID:          order.AddressID,
		QuoteID:            order.QuoteID,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		DeliveryStatus:     order.DeliveryStatus,
		PaymentMethod:      order.PaymentMethod,
		SubtotalCents:      order.SubtotalCents,
		ShippingCents:      order.ShippingCents,
		TaxCents:           order.TaxCents,
		DiscountCents:      order.DiscountCents,
		TotalCents:         order.TotalCents,
		Notes:              order.Notes,
		CanReturn:          order.CanReturn,
		ReturnDeadline:     order.ReturnDeadline,
		HasDispute:         order.HasDispute,
		TrackingNumber:     order.TrackingNumber,
		EstimatedDelivery:  order.EstimatedDelivery,
		ActualDelivery:     order.ActualDelivery,
		CancelledAt:        order.CancelledAt,
		CancellationReason: order.CancellationReason,
		Items:              newItems(order.Items),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

func newItems(items []models.OrderItem) []orderItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]orderItem, 0, len(items))
	for _, item := range items {
		out = append(out, orderItem{
			ID:                item.ID,
			ProductID:         item.ProductID,
			VariantID:         item.VariantID,
			SellerID:          item.SellerID,
			Title:             item.Title,
			Quantity:          item.Quantity,
			PriceCents:        item.PriceCents,
			LineTotalCents:    item.LineTotalCents(),
			IsCustomOrder:     item.IsCustomOrder,
			CustomTitle:       item.CustomTitle,
			CustomDescription: item.CustomDescription,
			NegotiationID:     item.NegotiationID,
		})
	}
	return out
}

type sellerSegment struct {
	SellerID      uuid.UUID   `json:"seller_id"`
	ItemCount     int         `json:"item_count"`
	SubtotalCents int64       `json:"subtotal_cents"`
	Items         []orderItem `json:"items"`
}

// orderDetail is an order as one viewer sees it. Sellers get their own
// segment only, so top-level items are omitted for them.
type orderDetail struct {
	*orderResponse
	ViewerRole enums.UserRole  `json:"viewer_role"`
	Segments   []sellerSegment `json:"segments"`
}

func newOrderDetail(view *internalorders.OrderView) orderDetail {
	order := newOrder(view.Order)
	if view.ViewerRole == enums.UserRoleSeller && order != nil {
		order.Items = nil
	}
	segments := make([]sellerSegment, 0, len(view.Segments))
	for _, seg := range view.Segments {
		segments = append(segments, sellerSegment{
			SellerID:      seg.SellerID,
			ItemCount:     seg.ItemCount,
			SubtotalCents: seg.SubtotalCents,
			Items:         newItems(seg.Items),
		})
	}
	return orderDetail{orderResponse: order, ViewerRole: view.ViewerRole, Segments: segments}
}

func newOrderPage(page pagination.Page[models.Order]) pagination.Page[*orderResponse] {
	items := make([]*orderResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, newOrder(&page.Items[i]))
	}
	return pagination.Page[*orderResponse]{Items: items, NextCursor: page.NextCursor}
}

type statusEvent struct {
	Position   int                `json:"position"`
	FromStatus *enums.OrderStatus `json:"from_status,omitempty"`
	Status     enums.OrderStatus  `json:"status"`
	Note       *string            `json:"note,omitempty"`
	ActorID    *uuid.UUID         `json:"actor_id,omitempty"`
	ActorRole  enums.UserRole     `json:"actor_role"`
	CreatedAt  time.Time          `json:"created_at"`
}

func newHistory(events []models.OrderStatusEvent) []statusEvent {
	out := make([]statusEvent, 0, len(events))
	for _, e := range events {
		out = append(out, statusEvent{
			Position:   e.Position,
			FromStatus: e.FromStatus,
			Status:     e.Status,
			Note:       e.Note,
			ActorID:    e.ActorID,
			ActorRole:  e.ActorRole,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

type paymentTransaction struct {
	ID          uuid.UUID                    `json:"id"`
	Type        enums.PaymentTransactionType `json:"type"`
	AmountCents int64                        `json:"amount_cents"`
	Status      string                       `json:"status"`
	Method      enums.PaymentMethod          `json:"method"`
	Reference   string                       `json:"reference"`
	Reason      *string                      `json:"reason,omitempty"`
	ProcessedAt time.Time                    `json:"processed_at"`
}

func newTransaction(tx *models.PaymentTransaction) *paymentTransaction {
	if tx == nil {
		return nil
	}
	return &paymentTransaction{
		ID:          tx.ID,
		Type:        tx.Type,
		AmountCents: tx.AmountCents,
		Status:      tx.Status,
		Method:      tx.Method,
		Reference:   tx.Reference,
		Reason:      tx.Reason,
		ProcessedAt: tx.ProcessedAt,
	}
}

func newTransactions(txs []models.PaymentTransaction) []*paymentTransaction {
	out := make([]*paymentTransaction, 0, len(txs))
	for i := range txs {
		out = append(out, newTransaction(&txs[i]))
	}
	return out
}

type paymentResponse struct {
	Order       *orderResponse      `json:"order"`
	Transaction *paymentTransaction `json:"transaction"`
}

func newPaymentResult(result *internalorders.PaymentResult) paymentResponse {
	return paymentResponse{
		Order:       newOrder(result.Order),
		Transaction: newTransaction(result.Transaction),
	}
}
