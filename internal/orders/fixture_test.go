package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/negotiations"
	"github.com/angelmondragon/bazaar-backend/internal/pricing"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []enums.NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event enums.NotificationEvent, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) seen() []enums.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]enums.NotificationEvent, len(n.events))
	copy(out, n.events)
	return out
}

type orderFixture struct {
	t        *testing.T
	ctx      context.Context
	conn     *gorm.DB
	svc      Service
	cart     cart.Service
	notifier *recordingNotifier
	now      time.Time

	buyer    models.User
	sellerA  models.User
	sellerB  models.User
	admin    models.User
	stranger models.User
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()

	f := &orderFixture{
		t:        t,
		ctx:      context.Background(),
		conn:     conn,
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 6, 17, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	ledger := inventory.NewLedger(conn)
	negRepo := negotiations.NewRepository(conn)
	negValidator, err := negotiations.NewValidator(negRepo, clock)
	require.NoError(t, err)
	checker, err := cart.NewChecker(ledger, negValidator, 2)
	require.NoError(t, err)
	cartRepo := cart.NewRepository(conn)
	policy := pricing.PolicyFromConfig(config.CommerceConfig{
		MinimumOrderCents:     100,
		FreeShippingThreshold: 5000,
		FlatShippingCents:     1000,
		TaxRate:               "0.08",
	})

	f.cart, err = cart.NewService(cart.ServiceParams{
		Repo:         cartRepo,
		Ledger:       ledger,
		Negotiations: negValidator,
		Checker:      checker,
		Policy:       policy,
		MaxPerItem:   10,
	})
	require.NoError(t, err)

	f.svc, err = NewService(ServiceParams{
		Repo:                 NewRepository(conn),
		Tx:                   client,
		Cart:                 cartRepo,
		Checker:              checker,
		Ledger:               ledger,
		Negotiations:         negRepo,
		NegotiationValidator: negValidator,
		Identity:             users.NewRepository(conn),
		Policy:               policy,
		Notifier:             f.notifier,
		Clock:                clock,
		OrderNumberPrefix:    "AC",
		NumberRetries:        3,
		ReturnWindow:         30 * 24 * time.Hour,
	})
	require.NoError(t, err)

	f.buyer = dbtest.SeedUser(t, conn, enums.UserRoleBuyer)
	f.sellerA = dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	f.sellerB = dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	f.admin = dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	f.stranger = dbtest.SeedUser(t, conn, enums.UserRoleBuyer)
	return f
}

func (f *orderFixture) addToCart(userID uuid.UUID, product models.Product, qty int) {
	f.t.Helper()
	_, err := f.cart.AddItem(f.ctx, userID, cart.AddItemInput{ProductID: product.ID, Quantity: qty})
	require.NoError(f.t, err)
}

func (f *orderFixture) checkout(userID uuid.UUID) (*models.Order, error) {
	return f.svc.CreateFromCart(f.ctx, CreateFromCartInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCard,
	})
}

// placeOrder buys one unit of a fresh product from sellerA.
func (f *orderFixture) placeOrder(priceCents int64, stock int) (*models.Order, models.Product) {
	f.t.Helper()
	product := dbtest.SeedProduct(f.t, f.conn, f.sellerA.ID, priceCents, stock)
	f.addToCart(f.buyer.ID, product, 1)
	order, err := f.checkout(f.buyer.ID)
	require.NoError(f.t, err)
	return order, product
}

// drive walks the order through statuses as admin.
func (f *orderFixture) drive(order *models.Order, statuses ...enums.OrderStatus) *models.Order {
	f.t.Helper()
	for _, status := range statuses {
		var err error
		order, err = f.svc.UpdateStatus(f.ctx, UpdateStatusInput{
			OrderID: order.ID,
			ActorID: f.admin.ID,
			Status:  status,
		})
		require.NoError(f.t, err)
	}
	return order
}

func (f *orderFixture) history(orderID uuid.UUID) []models.OrderStatusEvent {
	f.t.Helper()
	events, err := NewRepository(f.conn).ListHistory(f.ctx, orderID)
	require.NoError(f.t, err)
	return events
}

func (f *orderFixture) payments(orderID uuid.UUID) []models.PaymentTransaction {
	f.t.Helper()
	txns, err := NewRepository(f.conn).ListPayments(f.ctx, orderID)
	require.NoError(f.t, err)
	return txns
}
