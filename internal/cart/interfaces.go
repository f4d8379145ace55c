package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository is the persistence surface for cart rows. Quantity writes are
// conditional so concurrent writers to one row serialize in the store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.CartItem, error)
	FindByKey(ctx context.Context, userID, productID uuid.UUID, variantKey string) (*models.CartItem, error)
	InsertIfAbsent(ctx context.Context, item *models.CartItem) (bool, error)
	IncrementQuantity(ctx context.Context, id uuid.UUID, delta, maxQuantity int) (bool, error)
	SetQuantity(ctx context.Context, userID, id uuid.UUID, quantity int) error
	UpdatePrice(ctx context.Context, id uuid.UUID, priceCents int64) error
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByNegotiation(ctx context.Context, negotiationID uuid.UUID) error
}
