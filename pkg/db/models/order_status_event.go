package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// OrderStatusEvent is one append-only status history entry. Position is the
// 1-based sequence within the order; (order_id, position) is unique.
type OrderStatusEvent struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_status_history_position,priority:1"`
	Position   int                `gorm:"column:position;not null;uniqueIndex:idx_order_status_history_position,priority:2"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:text"`
	Status     enums.OrderStatus  `gorm:"column:status;type:text;not null"`
	Note       *string            `gorm:"column:note"`
	ActorID    *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	ActorRole  enums.UserRole     `gorm:"column:actor_role;type:text;not null"`
	CreatedAt  time.Time          `gorm:"column:created_at;not null"`
}

func (OrderStatusEvent) TableName() string {
	return "order_status_history"
}

func (e *OrderStatusEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
