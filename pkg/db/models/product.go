package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Product is the seller listing. Stock is authoritative when the product has
// no variants.
type Product struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title              string              `gorm:"column:title;not null"`
	Status             enums.ProductStatus `gorm:"column:status;type:text;not null"`
	PriceCents         int64               `gorm:"column:price_cents;not null"`
	DiscountPriceCents *int64              `gorm:"column:discount_price_cents"`
	Stock              int                 `gorm:"column:stock;not null;check:stock >= 0"`
	Variants           []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant carries its own stock and an optional price override.
type ProductVariant struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Name               string    `gorm:"column:name;not null"`
	SKU                string    `gorm:"column:sku;not null"`
	PriceCents         *int64    `gorm:"column:price_cents"`
	DiscountPriceCents *int64    `gorm:"column:discount_price_cents"`
	Stock              int       `gorm:"column:stock;not null;check:stock >= 0"`
	IsActive           bool      `gorm:"column:is_active;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
