package negotiations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Check describes how a negotiation is about to be used.
type Check struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	// CartItemID is the row already holding the negotiation, if any. Binding
	// to that row is not a reuse.
	CartItemID *uuid.UUID
	// SkipProductMatch is set for quote orders, where the product comes from
	// the negotiation itself.
	SkipProductMatch bool
	// IgnoreCartBinding lets a quote order consume a negotiation that also
	// sits in the buyer's cart; the order removes that row.
	IgnoreCartBinding bool
}

type Validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository, now func() time.Time) (*Validator, error) {
	if repo == nil {
		return nil, fmt.Errorf("negotiation repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{repo: repo, now: now}, nil
}

func (v *Validator) WithTx(tx *gorm.DB) *Validator {
	return &Validator{repo: v.repo.WithTx(tx), now: v.now}
}

// Validate loads the negotiation and runs every ownership, status, expiry,
// product, quantity and reuse check.
func (v *Validator) Validate(ctx context.Context, negotiationID uuid.UUID, check Check) (*models.Negotiation, error) {
	neg, err := v.repo.Get(ctx, negotiationID)
	if err != nil {
		return nil, err
	}

	if neg.BuyerID != check.UserID {
		return nil, invalid(pkgerrors.CodeForbidden, "negotiation belongs to another buyer")
	}
	if !check.SkipProductMatch {
		if neg.ProductID != check.ProductID {
			return nil, invalid(pkgerrors.CodeValidation, "negotiation is for a different product")
		}
		// a negotiation without a variant only prices the base product row
		if !sameVariant(neg.VariantID, check.VariantID) {
			return nil, invalid(pkgerrors.CodeValidation, "negotiation is for a different variant")
		}
	}
	if neg.Status != enums.NegotiationStatusAccepted {
		return nil, invalid(pkgerrors.CodeInvalidState, fmt.Sprintf("negotiation is %s, not ACCEPTED", neg.Status))
	}
	if neg.FinalPriceCents == nil || *neg.FinalPriceCents <= 0 {
		return nil, invalid(pkgerrors.CodeInvalidState, "negotiation has no final price")
	}
	if neg.ExpiresAt != nil && !v.now().Before(*neg.ExpiresAt) {
		return nil, invalid(pkgerrors.CodeInvalidState, "negotiation has expired")
	}
	if check.Quantity > neg.GrantedQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity %d exceeds negotiated quantity %d", check.Quantity, neg.GrantedQuantity)).
			WithReason(pkgerrors.ReasonExceedsNegotiatedQuantity).
			WithDetails(map[string]any{"granted_quantity": neg.GrantedQuantity, "requested": check.Quantity})
	}

	if check.IgnoreCartBinding {
		return neg, nil
	}
	bound, err := v.repo.BoundCartItemID(ctx, neg.ID)
	if err != nil {
		return nil, err
	}
	if bound != nil && (check.CartItemID == nil || *bound != *check.CartItemID) {
		return nil, invalid(pkgerrors.CodeConflict, "negotiation already bound to another cart item")
	}

	return neg, nil
}

func invalid(code pkgerrors.Code, msg string) error {
	return pkgerrors.New(code, msg).WithReason(pkgerrors.ReasonNegotiationInvalid)
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
