package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one pending selection. VariantKey is the variant id or "" so
// the (user, product, variant) uniqueness also covers rows without variant.
type CartItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_items_user_product_variant,priority:1"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_user_product_variant,priority:2"`
	VariantKey      string     `gorm:"column:variant_key;type:text;not null;uniqueIndex:idx_cart_items_user_product_variant,priority:3"`
	VariantID       *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Quantity        int        `gorm:"column:quantity;not null;check:quantity > 0"`
	PriceAtAddCents int64      `gorm:"column:price_at_add_cents;not null"`
	NegotiationID   *uuid.UUID `gorm:"column:negotiation_id;type:uuid;uniqueIndex:idx_cart_items_negotiation"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// VariantKeyFor normalizes an optional variant into the uniqueness key.
func VariantKeyFor(variantID *uuid.UUID) string {
	if variantID == nil || *variantID == uuid.Nil {
		return ""
	}
	return variantID.String()
}
