package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Notification is one in-app inbox entry for a user, written by the inbox
// sink after an order, dispute or return event.
type Notification struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user_created,priority:1"`
	EventID   string                  `gorm:"column:event_id;type:text;not null"`
	Event     enums.NotificationEvent `gorm:"column:event;type:text;not null"`
	OrderID   *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	Title     string                  `gorm:"column:title;type:text;not null"`
	Message   string                  `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time              `gorm:"column:read_at"`
	CreatedAt time.Time               `gorm:"column:created_at;index:idx_notifications_user_created,priority:2"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
