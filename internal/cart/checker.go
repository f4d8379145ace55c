package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/negotiations"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Issue is one validation finding for a cart row.
type Issue struct {
	CartItemID        uuid.UUID           `json:"cart_item_id"`
	ProductID         uuid.UUID           `json:"product_id"`
	VariantID         *uuid.UUID          `json:"variant_id,omitempty"`
	Type              enums.CartIssueType `json:"type"`
	Message           string              `json:"message"`
	Available         *int                `json:"available,omitempty"`
	CurrentPriceCents *int64              `json:"current_price_cents,omitempty"`
}

// CheckedLine pairs a cart row with the catalog state read for it. Avail is
// nil when the product no longer exists.
type CheckedLine struct {
	Item  models.CartItem
	Avail *inventory.Availability
}

type ValidationResult struct {
	Valid    bool          `json:"valid"`
	Errors   []Issue       `json:"errors"`
	Warnings []Issue       `json:"warnings"`
	Lines    []CheckedLine `json:"-"`
}

// Checker re-reads availability and negotiations for cart rows. It is used
// by Validate and, inside the checkout transaction, by the order orchestrator.
type Checker struct {
	ledger            inventory.Ledger
	negotiations      *negotiations.Validator
	lowStockThreshold int
}

func NewChecker(ledger inventory.Ledger, negValidator *negotiations.Validator, lowStockThreshold int) (*Checker, error) {
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if negValidator == nil {
		return nil, fmt.Errorf("negotiation validator required")
	}
	return &Checker{ledger: ledger, negotiations: negValidator, lowStockThreshold: lowStockThreshold}, nil
}

func (c *Checker) WithTx(tx *gorm.DB) *Checker {
	return &Checker{
		ledger:            c.ledger.WithTx(tx),
		negotiations:      c.negotiations.WithTx(tx),
		lowStockThreshold: c.lowStockThreshold,
	}
}

func (c *Checker) Check(ctx context.Context, userID uuid.UUID, items []models.CartItem) (*ValidationResult, error) {
	result := &ValidationResult{Errors: []Issue{}, Warnings: []Issue{}}

	for _, item := range items {
		line := CheckedLine{Item: item}
		avail, err := c.ledger.GetAvailability(ctx, item.ProductID, item.VariantID)
		if err != nil && pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
			return nil, err
		}
		line.Avail = avail
		result.Lines = append(result.Lines, line)

		if avail == nil {
			result.add(issue(item, enums.CartIssueTypeProductUnavailable, "product no longer exists"))
			continue
		}
		if !avail.Purchasable() {
			result.add(issue(item, enums.CartIssueTypeProductUnavailable, fmt.Sprintf("product is %s", avail.Status)))
			continue
		}
		if avail.Stock < item.Quantity {
			found := issue(item, enums.CartIssueTypeOutOfStock,
				fmt.Sprintf("only %d available, %d in cart", avail.Stock, item.Quantity))
			stock := avail.Stock
			found.Available = &stock
			result.add(found)
			continue
		}
		if avail.Stock-item.Quantity <= c.lowStockThreshold {
			found := issue(item, enums.CartIssueTypeLowStock, fmt.Sprintf("only %d left in stock", avail.Stock))
			stock := avail.Stock
			found.Available = &stock
			result.add(found)
		}

		if item.NegotiationID != nil {
			_, err := c.negotiations.Validate(ctx, *item.NegotiationID, negotiations.Check{
				UserID:     userID,
				ProductID:  item.ProductID,
				VariantID:  item.VariantID,
				Quantity:   item.Quantity,
				CartItemID: &item.ID,
			})
			if err != nil {
				if pkgerrors.As(err) == nil {
					return nil, err
				}
				result.add(issue(item, enums.CartIssueTypeNegotiationInvalid, pkgerrors.As(err).Message()))
			}
			continue
		}

		if current := avail.EffectivePriceCents(); current != item.PriceAtAddCents {
			found := issue(item, enums.CartIssueTypePriceChanged,
				fmt.Sprintf("price changed from %d to %d", item.PriceAtAddCents, current))
			found.CurrentPriceCents = &current
			result.add(found)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// Err converts blocking findings into a single typed error.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	first := r.Errors[0]
	code, reason := pkgerrors.CodeInvalidState, pkgerrors.ReasonProductUnavailable
	switch first.Type {
	case enums.CartIssueTypeOutOfStock:
		code, reason = pkgerrors.CodeInsufficientStock, pkgerrors.ReasonOutOfStock
	case enums.CartIssueTypeNegotiationInvalid:
		reason = pkgerrors.ReasonNegotiationInvalid
	}
	return pkgerrors.New(code, "cart has blocking issues: "+first.Message).
		WithReason(reason).
		WithDetails(map[string]any{"errors": r.Errors})
}

func (r *ValidationResult) add(found Issue) {
	if found.Type.Blocking() {
		r.Errors = append(r.Errors, found)
		return
	}
	r.Warnings = append(r.Warnings, found)
}

func issue(item models.CartItem, kind enums.CartIssueType, msg string) Issue {
	return Issue{
		CartItemID: item.ID,
		ProductID:  item.ProductID,
		VariantID:  item.VariantID,
		Type:       kind,
		Message:    msg,
	}
}
