package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a disputes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDispute(ctx context.Context, dispute *models.OrderDispute) error {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create dispute")
	}
	return nil
}

func (r *repository) FindDispute(ctx context.Context, id uuid.UUID) (*models.OrderDispute, error) {
	var dispute models.OrderDispute
	if err := r.db.WithContext(ctx).First(&dispute, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dispute")
	}
	return &dispute, nil
}

func (r *repository) ListDisputes(ctx context.Context, orderID uuid.UUID) ([]models.OrderDispute, error) {
	var disputes []models.OrderDispute
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&disputes).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list disputes")
	}
	return disputes, nil
}

func (r *repository) UpdateDispute(ctx context.Context, id uuid.UUID, expected enums.DisputeStatus, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.OrderDispute{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update dispute")
	}
	if res.RowsAffected == 0 {
		return concurrentUpdate("dispute", string(expected))
	}
	return nil
}

func (r *repository) CreateReturn(ctx context.Context, ret *models.OrderReturn) error {
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		if db.IsUniqueViolation(err, "order_returns") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a return was already requested for this order").
				WithReason(pkgerrors.ReasonReturnAlreadyExists)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create return")
	}
	return nil
}

func (r *repository) FindReturn(ctx context.Context, id uuid.UUID) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	if err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return")
	}
	return &ret, nil
}

func (r *repository) ListReturns(ctx context.Context, orderID uuid.UUID) ([]models.OrderReturn, error) {
	var returns []models.OrderReturn
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&returns).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list returns")
	}
	return returns, nil
}

func (r *repository) UpdateReturn(ctx context.Context, id uuid.UUID, expected enums.ReturnStatus, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.OrderReturn{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update return")
	}
	if res.RowsAffected == 0 {
		return concurrentUpdate("return", string(expected))
	}
	return nil
}

func concurrentUpdate(kind, expected string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, kind+" changed concurrently").
		WithReason(pkgerrors.ReasonConcurrentUpdate).
		WithDetails(map[string]any{"expected_status": expected})
}
