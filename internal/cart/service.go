package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/negotiations"
	"github.com/angelmondragon/bazaar-backend/internal/pricing"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// Service exposes the cart aggregate operations.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error)
	Validate(ctx context.Context, userID uuid.UUID) (*ValidationResult, error)
	ResyncPrices(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type AddItemInput struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	Quantity      int
	NegotiationID *uuid.UUID
}

type service struct {
	repo         Repository
	ledger       inventory.Ledger
	negotiations *negotiations.Validator
	checker      *Checker
	policy       pricing.Policy
	maxPerItem   int
	logg         *logger.Logger
}

type ServiceParams struct {
	Repo         Repository
	Ledger       inventory.Ledger
	Negotiations *negotiations.Validator
	Checker      *Checker
	Policy       pricing.Policy
	MaxPerItem   int
	Logger       *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if p.Negotiations == nil {
		return nil, fmt.Errorf("negotiation validator required")
	}
	if p.Checker == nil {
		return nil, fmt.Errorf("cart checker required")
	}
	if p.MaxPerItem <= 0 {
		return nil, fmt.Errorf("max quantity per item must be positive")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &service{
		repo:         p.Repo,
		ledger:       p.Ledger,
		negotiations: p.Negotiations,
		checker:      p.Checker,
		policy:       p.Policy,
		maxPerItem:   p.MaxPerItem,
		logg:         p.Logger,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	if userID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if err := s.checkQuantityBounds(input.Quantity); err != nil {
		return nil, err
	}

	avail, err := s.ledger.GetAvailability(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}
	if !avail.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "product is not available for purchase").
			WithReason(pkgerrors.ReasonProductUnavailable)
	}
	if avail.SellerID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sellers cannot buy their own products").
			WithReason(pkgerrors.ReasonSelfPurchase)
	}

	variantKey := models.VariantKeyFor(input.VariantID)
	existing, err := s.repo.FindByKey(ctx, userID, input.ProductID, variantKey)
	if err != nil {
		return nil, err
	}

	current := 0
	var existingID *uuid.UUID
	if existing != nil {
		current = existing.Quantity
		existingID = &existing.ID
		if !sameNegotiation(existing.NegotiationID, input.NegotiationID) && input.NegotiationID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart already holds this product under different terms; remove it first").
				WithReason(pkgerrors.ReasonNegotiationInvalid)
		}
	}
	total := current + input.Quantity
	if total > s.maxPerItem {
		return nil, s.quantityCapError(total)
	}
	if total > avail.Stock {
		return nil, inventory.InsufficientStockError(input.ProductID, input.VariantID, total, avail.Stock)
	}

	negotiationID := input.NegotiationID
	if negotiationID == nil && existing != nil {
		negotiationID = existing.NegotiationID
	}
	price := avail.EffectivePriceCents()
	limit := min(s.maxPerItem, avail.Stock)
	if negotiationID != nil {
		neg, err := s.negotiations.Validate(ctx, *negotiationID, negotiations.Check{
			UserID:     userID,
			ProductID:  input.ProductID,
			VariantID:  input.VariantID,
			Quantity:   total,
			CartItemID: existingID,
		})
		if err != nil {
			return nil, err
		}
		price = *neg.FinalPriceCents
		limit = min(limit, neg.GrantedQuantity)
	}

	if existing == nil {
		row := &models.CartItem{
			ID:              uuid.New(),
			UserID:          userID,
			ProductID:       input.ProductID,
			VariantID:       input.VariantID,
			VariantKey:      variantKey,
			Quantity:        input.Quantity,
			PriceAtAddCents: price,
			NegotiationID:   negotiationID,
		}
		inserted, err := s.repo.InsertIfAbsent(ctx, row)
		if err != nil {
			return nil, err
		}
		if inserted {
			return row, nil
		}
		// Lost the insert race, or the negotiation got bound elsewhere.
		existing, err = s.repo.FindByKey(ctx, userID, input.ProductID, variantKey)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "negotiation already bound to another cart item").
				WithReason(pkgerrors.ReasonNegotiationInvalid)
		}
		if !sameNegotiation(existing.NegotiationID, negotiationID) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart row changed concurrently").
				WithReason(pkgerrors.ReasonConcurrentUpdate)
		}
	}

	ok, err := s.repo.IncrementQuantity(ctx, existing.ID, input.Quantity, limit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.explainRejectedIncrement(ctx, userID, existing.ID, input, avail.Stock)
	}
	return s.repo.FindByID(ctx, userID, existing.ID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if err := s.checkQuantityBounds(quantity); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	avail, err := s.ledger.GetAvailability(ctx, item.ProductID, item.VariantID)
	if err != nil {
		return nil, err
	}
	if !avail.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "product is not available for purchase").
			WithReason(pkgerrors.ReasonProductUnavailable)
	}
	if quantity > avail.Stock {
		return nil, inventory.InsufficientStockError(item.ProductID, item.VariantID, quantity, avail.Stock)
	}
	if item.NegotiationID != nil {
		if _, err := s.negotiations.Validate(ctx, *item.NegotiationID, negotiations.Check{
			UserID:     userID,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Quantity:   quantity,
			CartItemID: &item.ID,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SetQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	removed, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "removed_items", removed), "cart cleared")
	return nil
}

func (s *service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := s.checker.Check(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(result.Lines))
	for _, checked := range result.Lines {
		lines = append(lines, buildLine(checked))
	}
	return summarize(lines, s.policy), nil
}

func (s *service) Validate(ctx context.Context, userID uuid.UUID) (*ValidationResult, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.checker.Check(ctx, userID, items)
}

// ResyncPrices moves non-negotiated rows to the current effective price.
func (s *service) ResyncPrices(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.NegotiationID != nil {
			continue
		}
		avail, err := s.ledger.GetAvailability(ctx, item.ProductID, item.VariantID)
		if err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		if current := avail.EffectivePriceCents(); current != item.PriceAtAddCents {
			if err := s.repo.UpdatePrice(ctx, item.ID, current); err != nil {
				return nil, err
			}
		}
	}
	return s.Summarize(ctx, userID)
}

func (s *service) checkQuantityBounds(quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithReason(pkgerrors.ReasonInvalidQuantity)
	}
	if quantity > s.maxPerItem {
		return s.quantityCapError(quantity)
	}
	return nil
}

func (s *service) quantityCapError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("quantity %d exceeds the per-product limit of %d", quantity, s.maxPerItem)).
		WithReason(pkgerrors.ReasonInvalidQuantity)
}

// explainRejectedIncrement re-reads state after a conditional increment
// failed so the caller gets the bound that was actually hit.
func (s *service) explainRejectedIncrement(ctx context.Context, userID, itemID uuid.UUID, input AddItemInput, stock int) error {
	item, err := s.repo.FindByID(ctx, userID, itemID)
	if err != nil {
		return err
	}
	total := item.Quantity + input.Quantity
	if total > s.maxPerItem {
		return s.quantityCapError(total)
	}
	if total > stock {
		return inventory.InsufficientStockError(input.ProductID, input.VariantID, total, stock)
	}
	if item.NegotiationID != nil {
		_, err := s.negotiations.Validate(ctx, *item.NegotiationID, negotiations.Check{
			UserID:     userID,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Quantity:   total,
			CartItemID: &item.ID,
		})
		if err != nil {
			return err
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "cart item changed concurrently").
		WithReason(pkgerrors.ReasonConcurrentUpdate)
}

func sameNegotiation(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
