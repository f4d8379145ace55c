package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Negotiation is an agreed custom price and quantity, consumed at most once
// by a cart checkout or a quote order.
type Negotiation struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID           uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID          uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID         uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	VariantID         *uuid.UUID              `gorm:"column:variant_id;type:uuid"`
	Status            enums.NegotiationStatus `gorm:"column:status;type:text;not null"`
	FinalPriceCents   *int64                  `gorm:"column:final_price_cents"`
	GrantedQuantity   int                     `gorm:"column:granted_quantity;not null"`
	ExpiresAt         *time.Time              `gorm:"column:expires_at"`
	IsCustom          bool                    `gorm:"column:is_custom;not null"`
	CustomTitle       *string                 `gorm:"column:custom_title"`
	CustomDescription *string                 `gorm:"column:custom_description"`
	ConsumedAt        *time.Time              `gorm:"column:consumed_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (n *Negotiation) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
