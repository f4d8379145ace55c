package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/negotiations"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	sourceCart  = "cart"
	sourceQuote = "quote"
)

// CreateFromCart converts the buyer's whole cart into one order. Validation,
// stock decrements, order rows, negotiation consumption and cart clearing
// share a single transaction: any failure leaves stock and cart untouched.
func (s *service) CreateFromCart(ctx context.Context, input CreateFromCartInput) (*models.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	buyer, err := s.identity.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	actor := Actor{ID: &buyer.ID, Role: enums.UserRoleBuyer}

	var created *models.Order
	err = s.withOrderNumber(ctx, func(tx *gorm.DB, number string, now time.Time) error {
		items, err := s.cart.WithTx(tx).ListByUser(ctx, input.UserID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
				WithReason(pkgerrors.ReasonEmptyCart)
		}

		result, err := s.checker.WithTx(tx).Check(ctx, input.UserID, items)
		if err != nil {
			return err
		}
		if err := result.Err(); err != nil {
			return err
		}

		orderItems, subtotal := itemsFromCart(result.Lines)
		if minimum := s.policy.MinimumOrderCents(); subtotal < minimum {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("order subtotal %d is below the minimum of %d", subtotal, minimum)).
				WithReason(pkgerrors.ReasonMinimumOrderNotMet).
				WithDetails(map[string]any{"subtotal_cents": subtotal, "minimum_cents": minimum})
		}

		ledger := s.ledger.WithTx(tx)
		for _, item := range orderItems {
			if err := ledger.Decrement(ctx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		order := s.newOrder(number, now, input.UserID, input.AddressID, input.PaymentMethod, input.Notes, orderItems, enums.OrderStatusPending)
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, historyEntry(order.ID, nil, order.Status, actor, strPtr("order placed"), now)); err != nil {
			return err
		}

		negRepo := s.negotiations.WithTx(tx)
		for _, item := range orderItems {
			if item.NegotiationID == nil {
				continue
			}
			if err := negRepo.MarkConsumed(ctx, *item.NegotiationID, now); err != nil {
				return err
			}
		}
		if _, err := s.cart.WithTx(tx).DeleteByUser(ctx, input.UserID); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, s.creationFailed(ctx, err, sourceCart)
	}
	return s.created(ctx, created, actor, sourceCart)
}

// CreateFromQuote orders exactly one accepted negotiation. The order starts
// CONFIRMED because the seller already agreed to price and quantity.
func (s *service) CreateFromQuote(ctx context.Context, input CreateFromQuoteInput) (*models.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	buyer, err := s.identity.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	actor := Actor{ID: &buyer.ID, Role: enums.UserRoleBuyer}

	var created *models.Order
	err = s.withOrderNumber(ctx, func(tx *gorm.DB, number string, now time.Time) error {
		check := negotiations.Check{
			UserID:            input.UserID,
			SkipProductMatch:  true,
			IgnoreCartBinding: true,
		}
		if input.Quantity != nil {
			check.Quantity = *input.Quantity
		}
		neg, err := s.negValidator.WithTx(tx).Validate(ctx, input.QuoteID, check)
		if err != nil {
			return err
		}
		quantity := neg.GrantedQuantity
		if input.Quantity != nil {
			quantity = *input.Quantity
		}

		item := models.OrderItem{
			ProductID:         neg.ProductID,
			VariantID:         neg.VariantID,
			SellerID:          neg.SellerID,
			Quantity:          quantity,
			PriceCents:        *neg.FinalPriceCents,
			IsCustomOrder:     neg.IsCustom,
			CustomTitle:       neg.CustomTitle,
			CustomDescription: neg.CustomDescription,
			NegotiationID:     &neg.ID,
		}

		ledger := s.ledger.WithTx(tx)
		avail, err := ledger.GetAvailability(ctx, neg.ProductID, neg.VariantID)
		switch {
		case err != nil && !(neg.IsCustom && pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound):
			return err
		case avail != nil:
			item.Title = avail.Title
		}
		if neg.IsCustom && neg.CustomTitle != nil {
			item.Title = *neg.CustomTitle
		}
		if item.Title == "" {
			item.Title = "Custom order"
		}
		if !neg.IsCustom {
			if !avail.Purchasable() {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "quoted product is no longer available").
					WithReason(pkgerrors.ReasonProductUnavailable)
			}
			if err := ledger.Decrement(ctx, neg.ProductID, neg.VariantID, quantity); err != nil {
				return err
			}
		}

		order := s.newOrder(number, now, input.UserID, input.AddressID, input.PaymentMethod, input.Notes,
			[]models.OrderItem{item}, enums.OrderStatusConfirmed)
		order.QuoteID = &neg.ID
		order.ReturnsDisabled = neg.IsCustom

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, historyEntry(order.ID, nil, order.Status, actor, strPtr("created from accepted quote"), now)); err != nil {
			return err
		}
		if err := s.negotiations.WithTx(tx).MarkConsumed(ctx, neg.ID, now); err != nil {
			return err
		}
		if err := s.cart.WithTx(tx).DeleteByNegotiation(ctx, neg.ID); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, s.creationFailed(ctx, err, sourceQuote)
	}
	return s.created(ctx, created, actor, sourceQuote)
}

// withOrderNumber runs fn in a transaction with a freshly drawn order
// number. Losing the daily sequence to a concurrent checkout rolls the
// attempt back and retries with the next number.
func (s *service) withOrderNumber(ctx context.Context, fn func(tx *gorm.DB, number string, now time.Time) error) error {
	var err error
	for attempt := 1; attempt <= s.numberRetries; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			now := s.now()
			dayPrefix := OrderNumberDayPrefix(s.numberPrefix, now)
			last, err := s.repo.WithTx(tx).LastOrderNumber(ctx, dayPrefix)
			if err != nil {
				return err
			}
			seq, err := nextOrderSequence(dayPrefix, last)
			if err != nil {
				return err
			}
			return fn(tx, FormatOrderNumber(s.numberPrefix, now, seq), now)
		})
		if !errors.Is(err, errOrderNumberTaken) {
			return err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision, retrying")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate an order number").
		WithReason(pkgerrors.ReasonOrderNumberExhausted).
		WithDetails(map[string]any{"attempts": s.numberRetries})
}

func (s *service) newOrder(number string, now time.Time, userID, addressID uuid.UUID, method enums.PaymentMethod, notes *string, items []models.OrderItem, status enums.OrderStatus) *models.Order {
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotalCents()
	}
	totals := s.policy.Compute(subtotal, 0)
	return &models.Order{
		OrderNumber:    number,
		UserID:         userID,
		AddressID:      addressID,
		Status:         status,
		PaymentStatus:  enums.PaymentStatusPending,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentMethod:  method,
		SubtotalCents:  totals.SubtotalCents,
		ShippingCents:  totals.ShippingCents,
		TaxCents:       totals.TaxCents,
		DiscountCents:  totals.DiscountCents,
		TotalCents:     totals.TotalCents,
		Notes:          notes,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// itemsFromCart snapshots validated cart rows. The price snapshot is the
// price-at-add, which equals the negotiated price for negotiated rows.
func itemsFromCart(lines []cart.CheckedLine) ([]models.OrderItem, int64) {
	items := make([]models.OrderItem, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		item := models.OrderItem{
			ProductID:     line.Item.ProductID,
			VariantID:     line.Item.VariantID,
			SellerID:      line.Avail.SellerID,
			Title:         line.Avail.Title,
			Quantity:      line.Item.Quantity,
			PriceCents:    line.Item.PriceAtAddCents,
			NegotiationID: line.Item.NegotiationID,
		}
		subtotal += item.LineTotalCents()
		items = append(items, item)
	}
	return items, subtotal
}

func (s *service) created(ctx context.Context, order *models.Order, actor Actor, source string) (*models.Order, error) {
	s.metrics.IncCreated(source)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"source":       source,
		"total_cents":  order.TotalCents,
	})
	s.logg.Info(logCtx, "order created")
	s.emit(ctx, enums.NotificationEventOrderCreated, newOrderEvent(order, nil, actor, order.Notes, order.CreatedAt))
	return order, nil
}

func (s *service) creationFailed(ctx context.Context, err error, source string) error {
	if pkgerrors.CodeOf(err) == pkgerrors.CodeInsufficientStock {
		s.metrics.IncStockRejected()
	}
	if pkgerrors.As(err) == nil {
		s.logg.Error(s.logg.WithField(ctx, "source", source), "order creation failed", err)
	}
	return pkgerrors.Internalize(err, "create order")
}

func strPtr(v string) *string {
	return &v
}
