package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository persists disputes and returns. Status updates are conditional
// on the status the caller read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateDispute(ctx context.Context, dispute *models.OrderDispute) error
	FindDispute(ctx context.Context, id uuid.UUID) (*models.OrderDispute, error)
	ListDisputes(ctx context.Context, orderID uuid.UUID) ([]models.OrderDispute, error)
	UpdateDispute(ctx context.Context, id uuid.UUID, expected enums.DisputeStatus, updates map[string]any) error

	CreateReturn(ctx context.Context, ret *models.OrderReturn) error
	FindReturn(ctx context.Context, id uuid.UUID) (*models.OrderReturn, error)
	ListReturns(ctx context.Context, orderID uuid.UUID) ([]models.OrderReturn, error)
	UpdateReturn(ctx context.Context, id uuid.UUID, expected enums.ReturnStatus, updates map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
