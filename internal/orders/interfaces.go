package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Guard is the state a conditional order write expects to find. A write
// whose guard no longer matches affects no row.
type Guard struct {
	Status        enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// Repository persists orders, their items, status history and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, q Query, params pagination.Params) (pagination.Page[models.Order], error)
	LastOrderNumber(ctx context.Context, dayPrefix string) (string, error)
	CompareAndSwap(ctx context.Context, id uuid.UUID, guard Guard, updates map[string]any) error
	SetDisputeFlag(ctx context.Context, id uuid.UUID, open bool) error
	AppendHistory(ctx context.Context, event *models.OrderStatusEvent) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	InsertPayment(ctx context.Context, txn *models.PaymentTransaction) error
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	Stats(ctx context.Context, q Query) (*Stats, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
	CloseReturnWindows(ctx context.Context, now time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IdentityProvider resolves the caller of an operation.
type IdentityProvider interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier receives domain events after their transaction committed. It
// must not block.
type Notifier interface {
	Notify(ctx context.Context, event enums.NotificationEvent, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, enums.NotificationEvent, any) {}
