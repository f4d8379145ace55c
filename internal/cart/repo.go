package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// WithTx scopes the repository to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	return items, nil
}

func (r *repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	return &item, nil
}

// FindByKey returns nil without error when no row exists.
func (r *repository) FindByKey(ctx context.Context, userID, productID uuid.UUID, variantKey string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, productID, variantKey).
		First(&item).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item by key")
	}
	return &item, nil
}

// InsertIfAbsent reports false when any unique index (row key or negotiation
// binding) already holds a conflicting row.
func (r *repository) InsertIfAbsent(ctx context.Context, item *models.CartItem) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(item)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "insert cart item")
	}
	return res.RowsAffected == 1, nil
}

// IncrementQuantity adds delta only while the new total stays within
// maxQuantity.
func (r *repository) IncrementQuantity(ctx context.Context, id uuid.UUID, delta, maxQuantity int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE cart_items
		SET quantity = quantity + ?,
			updated_at = ?
		WHERE id = ? AND quantity + ? <= ?
	`, delta, time.Now().UTC(), id, delta, maxQuantity)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "increment cart quantity")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetQuantity(ctx context.Context, userID, id uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update cart quantity")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (r *repository) UpdatePrice(ctx context.Context, id uuid.UUID, priceCents int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND negotiation_id IS NULL", id).
		Updates(map[string]any{"price_at_add_cents": priceCents, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart price")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete cart item")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "clear cart")
	}
	return res.RowsAffected, nil
}

func (r *repository) DeleteByNegotiation(ctx context.Context, negotiationID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("negotiation_id = ?", negotiationID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release negotiation cart binding")
	}
	return nil
}
