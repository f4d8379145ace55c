package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

func seedOrder(t *testing.T, conn *gorm.DB, number string, buyerID, sellerID uuid.UUID, at time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:    number,
		UserID:         buyerID,
		AddressID:      uuid.New(),
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentMethod:  enums.PaymentMethodCard,
		SubtotalCents:  1000,
		TotalCents:     1000,
		Items: []models.OrderItem{{
			ProductID:  uuid.New(),
			SellerID:   sellerID,
			Title:      "Widget",
			Quantity:   2,
			PriceCents: 500,
		}},
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), order))
	return order
}

func TestRepositoryOrderNumbers(t *testing.T) {
	conn := dbtest.New(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()
	at := time.Date(2025, 6, 17, 9, 0, 0, 0, time.UTC)

	last, err := repo.LastOrderNumber(ctx, "AC250617")
	require.NoError(t, err)
	assert.Empty(t, last)

	seedOrder(t, conn, "AC2506170001", uuid.New(), uuid.New(), at)
	seedOrder(t, conn, "AC2506170002", uuid.New(), uuid.New(), at)
	seedOrder(t, conn, "AC2506180001", uuid.New(), uuid.New(), at)

	last, err = repo.LastOrderNumber(ctx, "AC250617")
	require.NoError(t, err)
	assert.Equal(t, "AC2506170002", last)

	dup := &models.Order{
		OrderNumber:    "AC2506170002",
		UserID:         uuid.New(),
		AddressID:      uuid.New(),
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentMethod:  enums.PaymentMethodCard,
	}
	err = repo.Create(ctx, dup)
	assert.True(t, errors.Is(err, errOrderNumberTaken))

	found, err := repo.FindByNumber(ctx, "AC2506170001")
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int64(1000), found.Items[0].LineTotalCents())

	_, err = repo.FindByNumber(ctx, "AC2506179999")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRepositoryCompareAndSwap(t *testing.T) {
	conn := dbtest.New(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, conn, "AC2506170001", uuid.New(), uuid.New(), time.Now().UTC())

	pending := enums.PaymentStatusPending
	err := repo.CompareAndSwap(ctx, order.ID, Guard{Status: enums.OrderStatusPending, PaymentStatus: &pending},
		map[string]any{"status": enums.OrderStatusConfirmed})
	require.NoError(t, err)

	err = repo.CompareAndSwap(ctx, order.ID, Guard{Status: enums.OrderStatusPending},
		map[string]any{"status": enums.OrderStatusCancelled})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonConcurrentUpdate, pkgerrors.ReasonOf(err))

	completed := enums.PaymentStatusCompleted
	err = repo.CompareAndSwap(ctx, order.ID, Guard{Status: enums.OrderStatusConfirmed, PaymentStatus: &completed},
		map[string]any{"status": enums.OrderStatusCancelled})
	assert.Equal(t, pkgerrors.ReasonConcurrentUpdate, pkgerrors.ReasonOf(err))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, got.Status)
}

func TestRepositoryHistoryPositions(t *testing.T) {
	conn := dbtest.New(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()
	order := seedOrder(t, conn, "AC2506170001", uuid.New(), uuid.New(), now)

	pending := enums.OrderStatusPending
	require.NoError(t, repo.AppendHistory(ctx, historyEntry(order.ID, nil, pending, systemActor, nil, now)))
	require.NoError(t, repo.AppendHistory(ctx, historyEntry(order.ID, &pending, enums.OrderStatusConfirmed, systemActor, nil, now)))

	events, err := repo.ListHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Position)
	assert.Nil(t, events[0].FromStatus)
	assert.Equal(t, 2, events[1].Position)
	assert.Equal(t, enums.OrderStatusConfirmed, events[1].Status)
}

func TestRepositoryPaymentReferenceUnique(t *testing.T) {
	conn := dbtest.New(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()
	order := seedOrder(t, conn, "AC2506170001", uuid.New(), uuid.New(), now)

	charge := func() *models.PaymentTransaction {
		return &models.PaymentTransaction{
			OrderID:     order.ID,
			UserID:      order.UserID,
			Type:        enums.PaymentTransactionTypeCharge,
			AmountCents: order.TotalCents,
			Status:      models.PaymentTransactionStatusSucceeded,
			Method:      order.PaymentMethod,
			Reference:   "PAY-fixed",
			ProcessedAt: now,
		}
	}
	require.NoError(t, repo.InsertPayment(ctx, charge()))
	err := repo.InsertPayment(ctx, charge())
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRepositoryFiltersBySeller(t *testing.T) {
	conn := dbtest.New(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2025, 6, 17, 9, 0, 0, 0, time.UTC)
	sellerA, sellerB := uuid.New(), uuid.New()

	seedOrder(t, conn, "AC2506170001", uuid.New(), sellerA, base)
	seedOrder(t, conn, "AC2506170002", uuid.New(), sellerB, base.Add(time.Minute))
	seedOrder(t, conn, "AC2506170003", uuid.New(), sellerA, base.Add(2*time.Minute))

	page, err := repo.List(ctx, Query{SellerID: &sellerA}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "AC2506170003", page.Items[0].OrderNumber)
	assert.Equal(t, "AC2506170001", page.Items[1].OrderNumber)

	from := base.Add(30 * time.Second)
	page, err = repo.List(ctx, Query{From: &from}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	stale, err := repo.ListStalePending(ctx, base.Add(90*time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}
