package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Order is the durable purchase record. Totals are fixed at creation.
type Order struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string               `gorm:"column:order_number;type:text;not null;uniqueIndex:idx_orders_order_number"`
	UserID             uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID          uuid.UUID            `gorm:"column:address_id;type:uuid;not null"`
	QuoteID            *uuid.UUID           `gorm:"column:quote_id;type:uuid"`
	Status             enums.OrderStatus    `gorm:"column:status;type:text;not null;index"`
	PaymentStatus      enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null"`
	DeliveryStatus     enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null"`
	PaymentMethod      enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	SubtotalCents      int64                `gorm:"column:subtotal_cents;not null"`
	ShippingCents      int64                `gorm:"column:shipping_cents;not null"`
	TaxCents           int64                `gorm:"column:tax_cents;not null"`
	DiscountCents      int64                `gorm:"column:discount_cents;not null"`
	TotalCents         int64                `gorm:"column:total_cents;not null;check:chk_orders_totals,total_cents = subtotal_cents + shipping_cents + tax_cents - discount_cents"`
	Notes              *string              `gorm:"column:notes"`
	CanReturn          bool                 `gorm:"column:can_return;not null"`
	ReturnsDisabled    bool                 `gorm:"column:returns_disabled;not null"`
	ReturnDeadline     *time.Time           `gorm:"column:return_deadline"`
	HasDispute         bool                 `gorm:"column:has_dispute;not null"`
	TrackingNumber     *string              `gorm:"column:tracking_number"`
	EstimatedDelivery  *time.Time           `gorm:"column:estimated_delivery"`
	ActualDelivery     *time.Time           `gorm:"column:actual_delivery"`
	CancelledAt        *time.Time           `gorm:"column:cancelled_at"`
	CancellationReason *string              `gorm:"column:cancellation_reason"`
	Items              []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is an immutable line snapshot. SellerID is denormalized so seller
// segments need no catalog join.
type OrderItem struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID         *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	SellerID          uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	Title             string     `gorm:"column:title;not null"`
	Quantity          int        `gorm:"column:quantity;not null"`
	PriceCents        int64      `gorm:"column:price_cents;not null"`
	IsCustomOrder     bool       `gorm:"column:is_custom_order;not null"`
	CustomTitle       *string    `gorm:"column:custom_title"`
	CustomDescription *string    `gorm:"column:custom_description"`
	NegotiationID     *uuid.UUID `gorm:"column:negotiation_id;type:uuid"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotalCents is price times quantity.
func (i OrderItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}
