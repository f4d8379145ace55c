package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Availability is the catalog view of one product or variant at read time.
type Availability struct {
	ProductID          uuid.UUID
	VariantID          *uuid.UUID
	SellerID           uuid.UUID
	Title              string
	Status             enums.ProductStatus
	Stock              int
	PriceCents         int64
	DiscountPriceCents *int64
}

// Purchasable reports whether the listing can be put in a cart or ordered.
func (a Availability) Purchasable() bool {
	return a.Status == enums.ProductStatusActive
}

// EffectivePriceCents is the discount price when one is set, else the list price.
func (a Availability) EffectivePriceCents() int64 {
	if a.DiscountPriceCents != nil && *a.DiscountPriceCents > 0 && *a.DiscountPriceCents < a.PriceCents {
		return *a.DiscountPriceCents
	}
	return a.PriceCents
}

// Ledger owns stock counts. Decrement and Increment are single conditional
// statements; callers compose them inside their own transaction via WithTx.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	GetAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Availability, error)
	Decrement(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) error
	Increment(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) error
}

type ledger struct {
	db *gorm.DB
}

func NewLedger(conn *gorm.DB) Ledger {
	return &ledger{db: conn}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{db: tx}
}

func (l *ledger) GetAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Availability, error) {
	var product models.Product
	if err := l.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	avail := &Availability{
		ProductID:          product.ID,
		SellerID:           product.SellerID,
		Title:              product.Title,
		Status:             product.Status,
		Stock:              product.Stock,
		PriceCents:         product.PriceCents,
		DiscountPriceCents: product.DiscountPriceCents,
	}
	if variantID == nil {
		return avail, nil
	}

	var variant models.ProductVariant
	err := l.db.WithContext(ctx).First(&variant, "id = ? AND product_id = ?", *variantID, productID).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}

	avail.VariantID = &variant.ID
	avail.Title = product.Title + " / " + variant.Name
	avail.Stock = variant.Stock
	if !variant.IsActive {
		avail.Status = enums.ProductStatusInactive
	}
	if variant.PriceCents != nil {
		avail.PriceCents = *variant.PriceCents
		avail.DiscountPriceCents = variant.DiscountPriceCents
	}
	return avail, nil
}

func (l *ledger) Decrement(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "decrement quantity must be positive").
			WithReason(pkgerrors.ReasonInvalidQuantity)
	}

	var res *gorm.DB
	if variantID != nil {
		res = l.db.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND product_id = ? AND stock >= ?
		`, qty, *variantID, productID, qty)
	} else {
		res = l.db.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, qty, productID, qty)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	avail, err := l.GetAvailability(ctx, productID, variantID)
	if err != nil {
		return err
	}
	return InsufficientStockError(productID, variantID, qty, avail.Stock)
}

func (l *ledger) Increment(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}

	var res *gorm.DB
	if variantID != nil {
		res = l.db.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND product_id = ?
		`, qty, *variantID, productID)
	} else {
		res = l.db.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, qty, productID)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock row missing for product %s", productID))
	}
	return nil
}

// InsufficientStockError builds the shared rejection for short stock.
func InsufficientStockError(productID uuid.UUID, variantID *uuid.UUID, requested, available int) error {
	details := map[string]any{
		"product_id": productID.String(),
		"requested":  requested,
		"available":  available,
	}
	if variantID != nil {
		details["variant_id"] = variantID.String()
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
		WithReason(pkgerrors.ReasonInsufficientStock).
		WithDetails(details)
}
