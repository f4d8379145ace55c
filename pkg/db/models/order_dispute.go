package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type OrderDispute struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	InitiatorID       uuid.UUID           `gorm:"column:initiator_id;type:uuid;not null"`
	Type              enums.DisputeType   `gorm:"column:type;type:text;not null"`
	Status            enums.DisputeStatus `gorm:"column:status;type:text;not null"`
	Description       string              `gorm:"column:description;not null"`
	SellerResponse    *string             `gorm:"column:seller_response"`
	Resolution        *string             `gorm:"column:resolution"`
	RefundAmountCents *int64              `gorm:"column:refund_amount_cents"`
	ResolvedBy        *uuid.UUID          `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt        *time.Time          `gorm:"column:resolved_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *OrderDispute) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// OrderReturn is unique per (order, requester).
type OrderReturn struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_returns_order_requester,priority:1"`
	RequesterID       uuid.UUID          `gorm:"column:requester_id;type:uuid;not null;uniqueIndex:idx_order_returns_order_requester,priority:2"`
	Reason            enums.ReturnReason `gorm:"column:reason;type:text;not null"`
	Details           *string            `gorm:"column:details"`
	Status            enums.ReturnStatus `gorm:"column:status;type:text;not null"`
	RefundAmountCents *int64             `gorm:"column:refund_amount_cents"`
	ReviewNote        *string            `gorm:"column:review_note"`
	ReviewedBy        *uuid.UUID         `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt        *time.Time         `gorm:"column:reviewed_at"`
	CompletedAt       *time.Time         `gorm:"column:completed_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *OrderReturn) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
