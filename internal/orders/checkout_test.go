package orders

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func TestCreateFromCartTwoSellers(t *testing.T) {
	f := newOrderFixture(t)
	first := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2500, 5)
	second := dbtest.SeedProduct(t, f.conn, f.sellerB.ID, 1500, 5)
	f.addToCart(f.buyer.ID, first, 1)
	f.addToCart(f.buyer.ID, second, 1)

	order, err := f.checkout(f.buyer.ID)
	require.NoError(t, err)

	assert.Equal(t, "AC2506170001", order.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.DeliveryStatusPending, order.DeliveryStatus)
	assert.Equal(t, int64(4000), order.SubtotalCents)
	assert.Equal(t, int64(1000), order.ShippingCents)
	assert.Equal(t, int64(320), order.TaxCents)
	assert.Equal(t, int64(0), order.DiscountCents)
	assert.Equal(t, int64(5320), order.TotalCents)

	stored, err := NewRepository(f.conn).FindByID(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	var itemsTotal int64
	for _, item := range stored.Items {
		itemsTotal += item.LineTotalCents()
	}
	assert.Equal(t, stored.SubtotalCents, itemsTotal)
	assert.Equal(t, stored.TotalCents, stored.SubtotalCents+stored.ShippingCents+stored.TaxCents-stored.DiscountCents)

	segments := SellerSegments(stored)
	require.Len(t, segments, 2)
	bySeller := map[uuid.UUID]int64{}
	for _, seg := range segments {
		bySeller[seg.SellerID] = seg.SubtotalCents
	}
	assert.Equal(t, int64(2500), bySeller[f.sellerA.ID])
	assert.Equal(t, int64(1500), bySeller[f.sellerB.ID])

	assert.Equal(t, 4, dbtest.ProductStock(t, f.conn, first.ID))
	assert.Equal(t, 4, dbtest.ProductStock(t, f.conn, second.ID))

	summary, err := f.cart.Summarize(f.ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Groups)

	history := f.history(order.ID)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Position)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, enums.OrderStatusPending, history[0].Status)
	assert.Equal(t, enums.UserRoleBuyer, history[0].ActorRole)
	require.NotNil(t, history[0].ActorID)
	assert.Equal(t, f.buyer.ID, *history[0].ActorID)

	assert.Equal(t, []enums.NotificationEvent{enums.NotificationEventOrderCreated}, f.notifier.seen())
}

func TestCreateFromCartSequencePerDay(t *testing.T) {
	f := newOrderFixture(t)
	first, _ := f.placeOrder(2000, 5)
	second, _ := f.placeOrder(2000, 5)
	assert.Equal(t, "AC2506170001", first.OrderNumber)
	assert.Equal(t, "AC2506170002", second.OrderNumber)

	f.now = f.now.AddDate(0, 0, 1)
	third, _ := f.placeOrder(2000, 5)
	assert.Equal(t, "AC2506180001", third.OrderNumber)
}

func TestCreateFromCartIsAllOrNothing(t *testing.T) {
	f := newOrderFixture(t)
	plenty := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 5)
	scarce := dbtest.SeedProduct(t, f.conn, f.sellerB.ID, 2000, 2)
	f.addToCart(f.buyer.ID, plenty, 2)
	f.addToCart(f.buyer.ID, scarce, 2)

	// another buyer takes the scarce stock first
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", scarce.ID).Update("stock", 1).Error)

	_, err := f.checkout(f.buyer.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))

	assert.Equal(t, 5, dbtest.ProductStock(t, f.conn, plenty.ID))
	assert.Equal(t, 1, dbtest.ProductStock(t, f.conn, scarce.ID))

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	summary, err := f.cart.Summarize(f.ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.ItemCount)
	assert.Empty(t, f.notifier.seen())
}

func TestCreateFromCartRejections(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.checkout(f.buyer.ID)
		assert.Equal(t, pkgerrors.ReasonEmptyCart, pkgerrors.ReasonOf(err))
	})

	t.Run("below minimum", func(t *testing.T) {
		f := newOrderFixture(t)
		cheap := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 50, 5)
		f.addToCart(f.buyer.ID, cheap, 1)
		_, err := f.checkout(f.buyer.ID)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		assert.Equal(t, pkgerrors.ReasonMinimumOrderNotMet, pkgerrors.ReasonOf(err))
		assert.Equal(t, 5, dbtest.ProductStock(t, f.conn, cheap.ID))
	})

	t.Run("product withdrawn", func(t *testing.T) {
		f := newOrderFixture(t)
		product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 5)
		f.addToCart(f.buyer.ID, product, 1)
		require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", product.ID).
			Update("status", enums.ProductStatusInactive).Error)
		_, err := f.checkout(f.buyer.ID)
		assert.Equal(t, pkgerrors.ReasonProductUnavailable, pkgerrors.ReasonOf(err))
	})

	t.Run("bad input", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.svc.CreateFromCart(f.ctx, CreateFromCartInput{UserID: f.buyer.ID, PaymentMethod: enums.PaymentMethodCard})
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		_, err = f.svc.CreateFromCart(f.ctx, CreateFromCartInput{UserID: f.buyer.ID, AddressID: uuid.New(), PaymentMethod: "BITCOIN"})
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})
}

func TestCreateFromCartConsumesNegotiation(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 10)
	neg := dbtest.SeedNegotiation(t, f.conn, f.buyer.ID, product, 1250, 3)

	_, err := f.cart.AddItem(f.ctx, f.buyer.ID, cart.AddItemInput{ProductID: product.ID, Quantity: 3, NegotiationID: &neg.ID})
	require.NoError(t, err)

	order, err := f.checkout(f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(1250), order.Items[0].PriceCents)
	assert.Equal(t, int64(3750), order.SubtotalCents)
	require.NotNil(t, order.Items[0].NegotiationID)

	var stored models.Negotiation
	require.NoError(t, f.conn.First(&stored, "id = ?", neg.ID).Error)
	assert.Equal(t, enums.NegotiationStatusCompleted, stored.Status)
	assert.NotNil(t, stored.ConsumedAt)

	_, err = f.cart.AddItem(f.ctx, f.buyer.ID, cart.AddItemInput{ProductID: product.ID, Quantity: 1, NegotiationID: &neg.ID})
	assert.Equal(t, pkgerrors.ReasonNegotiationInvalid, pkgerrors.ReasonOf(err))
}

func TestCreateFromQuote(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 10)
	neg := dbtest.SeedNegotiation(t, f.conn, f.buyer.ID, product, 1500, 3)

	// the quote also sits in the cart; ordering it removes that row
	_, err := f.cart.AddItem(f.ctx, f.buyer.ID, cart.AddItemInput{ProductID: product.ID, Quantity: 2, NegotiationID: &neg.ID})
	require.NoError(t, err)

	order, err := f.svc.CreateFromQuote(f.ctx, CreateFromQuoteInput{
		UserID:        f.buyer.ID,
		QuoteID:       neg.ID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	require.NotNil(t, order.QuoteID)
	assert.Equal(t, neg.ID, *order.QuoteID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, f.sellerA.ID, order.Items[0].SellerID)
	assert.False(t, order.Items[0].IsCustomOrder)
	assert.Equal(t, int64(4500), order.SubtotalCents)
	assert.Equal(t, int64(1000), order.ShippingCents)
	assert.Equal(t, int64(360), order.TaxCents)
	assert.Equal(t, int64(5860), order.TotalCents)
	assert.False(t, order.ReturnsDisabled)

	assert.Equal(t, 7, dbtest.ProductStock(t, f.conn, product.ID))

	history := f.history(order.ID)
	require.Len(t, history, 1)
	assert.Equal(t, enums.OrderStatusConfirmed, history[0].Status)

	summary, err := f.cart.Summarize(f.ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Groups)

	_, err = f.svc.CreateFromQuote(f.ctx, CreateFromQuoteInput{
		UserID:        f.buyer.ID,
		QuoteID:       neg.ID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCard,
	})
	assert.Equal(t, pkgerrors.ReasonNegotiationInvalid, pkgerrors.ReasonOf(err))
}

func TestCreateFromQuoteQuantityOverride(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 10)
	neg := dbtest.SeedNegotiation(t, f.conn, f.buyer.ID, product, 1500, 3)

	over := 4
	_, err := f.svc.CreateFromQuote(f.ctx, CreateFromQuoteInput{
		UserID: f.buyer.ID, QuoteID: neg.ID, AddressID: uuid.New(),
		PaymentMethod: enums.PaymentMethodCard, Quantity: &over,
	})
	assert.Equal(t, pkgerrors.ReasonExceedsNegotiatedQuantity, pkgerrors.ReasonOf(err))
	assert.Equal(t, 10, dbtest.ProductStock(t, f.conn, product.ID))

	under := 2
	order, err := f.svc.CreateFromQuote(f.ctx, CreateFromQuoteInput{
		UserID: f.buyer.ID, QuoteID: neg.ID, AddressID: uuid.New(),
		PaymentMethod: enums.PaymentMethodCard, Quantity: &under,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 8, dbtest.ProductStock(t, f.conn, product.ID))
}

func TestCreateFromQuoteCustomSkipsInventory(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 1)
	neg := dbtest.SeedNegotiation(t, f.conn, f.buyer.ID, product, 9000, 5)
	title := "Hand-carved table"
	require.NoError(t, f.conn.Model(&models.Negotiation{}).Where("id = ?", neg.ID).
		Updates(map[string]any{"is_custom": true, "custom_title": title}).Error)

	order, err := f.svc.CreateFromQuote(f.ctx, CreateFromQuoteInput{
		UserID: f.buyer.ID, QuoteID: neg.ID, AddressID: uuid.New(), PaymentMethod: enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].IsCustomOrder)
	assert.Equal(t, title, order.Items[0].Title)
	assert.True(t, order.ReturnsDisabled)
	assert.Equal(t, 1, dbtest.ProductStock(t, f.conn, product.ID))

	cancelled, err := f.svc.Cancel(f.ctx, f.admin.ID, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, dbtest.ProductStock(t, f.conn, product.ID))
}

func TestCreateFromQuoteOwnedByAnotherBuyer(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 10)
	neg := dbtest.SeedNegotiation(t, f.conn, f.buyer.ID, product, 1500, 3)

	_, err := f.svc.CreateFromQuote(f.ctx, CreateFromQuoteInput{
		UserID: f.stranger.ID, QuoteID: neg.ID, AddressID: uuid.New(), PaymentMethod: enums.PaymentMethodCard,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
	assert.Equal(t, 10, dbtest.ProductStock(t, f.conn, product.ID))
}

func TestCreateFromCartConcurrentLastUnit(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2000, 1)
	f.addToCart(f.buyer.ID, product, 1)
	f.addToCart(f.stranger.ID, product, 1)

	buyers := []uuid.UUID{f.buyer.ID, f.stranger.ID}
	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, id := range buyers {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.checkout(id)
		}(i, id)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.CodeOf(err) == pkgerrors.CodeInsufficientStock:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, dbtest.ProductStock(t, f.conn, product.ID))
}

func TestOrderNumberRetriesExhausted(t *testing.T) {
	f := newOrderFixture(t)
	svc := f.svc.(*service)

	var drawn []string
	err := svc.withOrderNumber(f.ctx, func(_ *gorm.DB, number string, _ time.Time) error {
		drawn = append(drawn, number)
		return fmt.Errorf("%w: %s", errOrderNumberTaken, number)
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonOrderNumberExhausted, pkgerrors.ReasonOf(err))
	assert.Len(t, drawn, 3)
	assert.Equal(t, "AC2506170001", drawn[0])
}
