package negotiations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Repository is the negotiation provider backing cart and quote checks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
	MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error
	BoundCartItemID(ctx context.Context, negotiationID uuid.UUID) (*uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	var neg models.Negotiation
	if err := r.db.WithContext(ctx).First(&neg, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found").
				WithReason(pkgerrors.ReasonNegotiationInvalid)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load negotiation")
	}
	return &neg, nil
}

// MarkConsumed flips ACCEPTED to COMPLETED. A negotiation that is no longer
// ACCEPTED was consumed by a concurrent checkout.
func (r *repository) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("id = ? AND status = ?", id, enums.NegotiationStatusAccepted).
		Updates(map[string]any{
			"status":      enums.NegotiationStatusCompleted,
			"consumed_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "mark negotiation consumed")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "negotiation already consumed").
			WithReason(pkgerrors.ReasonNegotiationInvalid)
	}
	return nil
}

func (r *repository) BoundCartItemID(ctx context.Context, negotiationID uuid.UUID) (*uuid.UUID, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Select("id").
		Where("negotiation_id = ?", negotiationID).
		Take(&item).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup negotiation binding")
	}
	return &item.ID, nil
}
