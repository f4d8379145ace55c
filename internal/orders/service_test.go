package orders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

func TestShippedOrderBuyerCancelRejectedAdminCancelRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	order, product := f.placeOrder(2000, 5)
	require.Equal(t, 4, dbtest.ProductStock(t, f.conn, product.ID))
	order = f.drive(order, enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusShipped)

	_, err := f.svc.Cancel(f.ctx, f.buyer.ID, order.ID, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonInvalidOrderState, pkgerrors.ReasonOf(err))
	assert.Equal(t, 4, dbtest.ProductStock(t, f.conn, product.ID))

	reason := "courier lost the parcel"
	cancelled, err := f.svc.Cancel(f.ctx, f.admin.ID, order.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.DeliveryStatusCancelled, cancelled.DeliveryStatus)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 5, dbtest.ProductStock(t, f.conn, product.ID))

	history := f.history(order.ID)
	require.Len(t, history, 5)
	last := history[4]
	assert.Equal(t, 5, last.Position)
	assert.Equal(t, enums.OrderStatusCancelled, last.Status)
	require.NotNil(t, last.FromStatus)
	assert.Equal(t, enums.OrderStatusShipped, *last.FromStatus)
	assert.Equal(t, enums.UserRoleAdmin, last.ActorRole)
}

func TestBuyerCancelFromCancellableStates(t *testing.T) {
	for _, path := range [][]enums.OrderStatus{
		{},
		{enums.OrderStatusConfirmed},
		{enums.OrderStatusConfirmed, enums.OrderStatusPaid},
	} {
		f := newOrderFixture(t)
		order, product := f.placeOrder(2000, 3)
		order = f.drive(order, path...)

		cancelled, err := f.svc.Cancel(f.ctx, f.buyer.ID, order.ID, nil)
		require.NoError(t, err, "from %s", order.Status)
		assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, 3, dbtest.ProductStock(t, f.conn, product.ID))
	}
}

func TestSellerDrivesFulfilment(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)

	step := func(actor uuid.UUID, to enums.OrderStatus, opts ...func(*UpdateStatusInput)) (*models.Order, error) {
		in := UpdateStatusInput{OrderID: order.ID, ActorID: actor, Status: to}
		for _, opt := range opts {
			opt(&in)
		}
		return f.svc.UpdateStatus(f.ctx, in)
	}

	_, err := step(f.sellerB.ID, enums.OrderStatusConfirmed)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err), "seller without items")

	_, err = step(f.sellerA.ID, enums.OrderStatusShipped)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonInvalidStatusTransition, pkgerrors.ReasonOf(err))

	_, err = step(f.sellerA.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = step(f.buyer.ID, enums.OrderStatusProcessing)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err), "buyer cannot fulfil")
	_, err = step(f.sellerA.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)

	eta := f.now.Add(72 * time.Hour)
	tracking := "1Z999AA10123456784"
	shipped, err := step(f.sellerA.ID, enums.OrderStatusShipped, func(in *UpdateStatusInput) {
		in.TrackingNumber = &tracking
		in.EstimatedDelivery = &eta
	})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusShipped, shipped.DeliveryStatus)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, tracking, *shipped.TrackingNumber)
	require.NotNil(t, shipped.EstimatedDelivery)
	assert.True(t, eta.Equal(*shipped.EstimatedDelivery))

	f.now = f.now.Add(48 * time.Hour)
	delivered, err := step(f.sellerA.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusDelivered, delivered.DeliveryStatus)
	assert.True(t, delivered.CanReturn)
	require.NotNil(t, delivered.ActualDelivery)
	assert.True(t, f.now.Equal(*delivered.ActualDelivery))
	require.NotNil(t, delivered.ReturnDeadline)
	assert.True(t, f.now.Add(30*24*time.Hour).Equal(*delivered.ReturnDeadline))

	_, err = step(f.sellerA.ID, enums.OrderStatusRefunded)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = step(f.stranger.ID, enums.OrderStatusCancelled)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestSelfTransitionIsNoop(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)

	same, err := f.svc.UpdateStatus(f.ctx, UpdateStatusInput{OrderID: order.ID, ActorID: f.buyer.ID, Status: enums.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, same.Status)
	assert.Len(t, f.history(order.ID), 1)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)
	order = f.drive(order, enums.OrderStatusCancelled)

	for _, to := range enums.OrderStatuses() {
		if to == enums.OrderStatusCancelled {
			continue
		}
		_, err := f.svc.UpdateStatus(f.ctx, UpdateStatusInput{OrderID: order.ID, ActorID: f.admin.ID, Status: to})
		assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err), "to %s", to)
	}
}

func TestStaleStatusWriteIsRejected(t *testing.T) {
	f := newOrderFixture(t)
	order, product := f.placeOrder(2000, 5)
	stale := *order

	f.drive(order, enums.OrderStatusCancelled)
	require.Equal(t, 5, dbtest.ProductStock(t, f.conn, product.ID))

	svc := f.svc.(*service)
	_, err := svc.transition(f.ctx, &stale, systemActor, enums.OrderStatusCancelled, transitionOpts{})
	// the stale copy still says PENDING, so the write must not apply twice
	assert.Equal(t, pkgerrors.ReasonConcurrentUpdate, pkgerrors.ReasonOf(err))
	assert.Equal(t, 5, dbtest.ProductStock(t, f.conn, product.ID))
}

func TestProcessPaymentIsIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)
	ref := "card_4242"

	res, err := f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: order.ID, ActorID: f.buyer.ID, MethodRef: &ref})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, res.Order.Status)
	assert.Equal(t, enums.PaymentStatusCompleted, res.Order.PaymentStatus)
	assert.Equal(t, order.TotalCents, res.Transaction.AmountCents)
	assert.Equal(t, enums.PaymentTransactionTypeCharge, res.Transaction.Type)
	assert.Contains(t, res.Transaction.Reference, paymentReferencePrefix)

	_, err = f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: order.ID, ActorID: f.buyer.ID})
	assert.Equal(t, pkgerrors.ReasonAlreadyPaid, pkgerrors.ReasonOf(err))

	assert.Len(t, f.payments(order.ID), 1)
	history := f.history(order.ID)
	require.Len(t, history, 2)
	assert.Equal(t, enums.OrderStatusPaid, history[1].Status)

	assert.Contains(t, f.notifier.seen(), enums.NotificationEventOrderPaid)
}

func TestProcessPaymentRules(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)

	_, err := f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: order.ID, ActorID: f.sellerA.ID})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	order = f.drive(order, enums.OrderStatusCancelled)
	_, err = f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: order.ID, ActorID: f.buyer.ID})
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
	assert.Empty(t, f.payments(order.ID))
}

func TestRefundPayment(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)

	_, err := f.svc.RefundPayment(f.ctx, RefundPaymentInput{OrderID: order.ID, ActorID: f.admin.ID})
	assert.Equal(t, pkgerrors.ReasonPaymentNotCompleted, pkgerrors.ReasonOf(err))

	_, err = f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: order.ID, ActorID: f.buyer.ID})
	require.NoError(t, err)

	_, err = f.svc.RefundPayment(f.ctx, RefundPaymentInput{OrderID: order.ID, ActorID: f.buyer.ID})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	reason := "goodwill"
	res, err := f.svc.RefundPayment(f.ctx, RefundPaymentInput{OrderID: order.ID, ActorID: f.admin.ID, Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, res.Order.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, res.Order.PaymentStatus)
	assert.Equal(t, -order.TotalCents, res.Transaction.AmountCents)

	txns := f.payments(order.ID)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(0), txns[0].AmountCents+txns[1].AmountCents)

	_, err = f.svc.RefundPayment(f.ctx, RefundPaymentInput{OrderID: order.ID, ActorID: f.admin.ID})
	assert.Equal(t, pkgerrors.ReasonPaymentNotCompleted, pkgerrors.ReasonOf(err))
}

func TestCancelPaidOrderRefunds(t *testing.T) {
	f := newOrderFixture(t)
	order, product := f.placeOrder(2000, 5)
	_, err := f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: order.ID, ActorID: f.buyer.ID})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(f.ctx, f.buyer.ID, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, 5, dbtest.ProductStock(t, f.conn, product.ID))

	txns := f.payments(order.ID)
	require.Len(t, txns, 2)
	assert.Equal(t, enums.PaymentTransactionTypeRefund, txns[1].Type)
	assert.Equal(t, -order.TotalCents, txns[1].AmountCents)
	assert.Contains(t, f.notifier.seen(), enums.NotificationEventOrderRefunded)
}

func TestPaymentLedgerRejectsWrongSign(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)

	row := func(txType enums.PaymentTransactionType, amount int64) *models.PaymentTransaction {
		return &models.PaymentTransaction{
			OrderID:     order.ID,
			UserID:      f.buyer.ID,
			Type:        txType,
			AmountCents: amount,
			Status:      models.PaymentTransactionStatusSucceeded,
			Method:      order.PaymentMethod,
			Reference:   uuid.NewString(),
			ProcessedAt: f.now,
		}
	}

	assert.Error(t, f.conn.Create(row(enums.PaymentTransactionTypeRefund, order.TotalCents)).Error)
	assert.Error(t, f.conn.Create(row(enums.PaymentTransactionTypeCharge, -order.TotalCents)).Error)
	assert.Empty(t, f.payments(order.ID))

	require.NoError(t, f.conn.Create(row(enums.PaymentTransactionTypeCharge, order.TotalCents)).Error)
	require.NoError(t, f.conn.Create(row(enums.PaymentTransactionTypeRefund, -order.TotalCents)).Error)
	assert.Len(t, f.payments(order.ID), 2)
}

func TestAdminUpdateStatusToPaidRecordsPayment(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)

	paid := f.drive(order, enums.OrderStatusPaid)
	assert.Equal(t, enums.PaymentStatusCompleted, paid.PaymentStatus)
	assert.Len(t, f.payments(order.ID), 1)
}

func TestGetViews(t *testing.T) {
	f := newOrderFixture(t)
	first := dbtest.SeedProduct(t, f.conn, f.sellerA.ID, 2500, 5)
	second := dbtest.SeedProduct(t, f.conn, f.sellerB.ID, 1500, 5)
	f.addToCart(f.buyer.ID, first, 1)
	f.addToCart(f.buyer.ID, second, 2)
	order, err := f.checkout(f.buyer.ID)
	require.NoError(t, err)

	view, err := f.svc.Get(f.ctx, f.buyer.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleBuyer, view.ViewerRole)
	assert.Len(t, view.Segments, 2)

	view, err = f.svc.Get(f.ctx, f.sellerB.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleSeller, view.ViewerRole)
	require.Len(t, view.Segments, 1)
	assert.Equal(t, f.sellerB.ID, view.Segments[0].SellerID)
	assert.Equal(t, 2, view.Segments[0].ItemCount)
	assert.Equal(t, int64(3000), view.Segments[0].SubtotalCents)

	byNumber, err := f.svc.GetByNumber(f.ctx, f.admin.ID, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.Order.ID)

	_, err = f.svc.Get(f.ctx, f.stranger.ID, order.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Get(f.ctx, f.buyer.ID, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = f.svc.GetByNumber(f.ctx, f.buyer.ID, "not-a-number")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.Payments(f.ctx, f.sellerA.ID, order.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestListScopesAndPagination(t *testing.T) {
	f := newOrderFixture(t)
	for i := 0; i < 3; i++ {
		f.placeOrder(2000, 5)
		f.now = f.now.Add(time.Minute)
	}
	other := dbtest.SeedProduct(t, f.conn, f.sellerB.ID, 2000, 5)
	f.addToCart(f.stranger.ID, other, 1)
	_, err := f.checkout(f.stranger.ID)
	require.NoError(t, err)

	page, err := f.svc.List(f.ctx, f.buyer.ID, ListFilter{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	rest, err := f.svc.List(f.ctx, f.buyer.ID, ListFilter{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	sellerPage, err := f.svc.List(f.ctx, f.sellerB.ID, ListFilter{Scope: ListScopeSeller}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, sellerPage.Items, 1)
	assert.Equal(t, f.stranger.ID, sellerPage.Items[0].UserID)

	pending := enums.OrderStatusPending
	all, err := f.svc.List(f.ctx, f.admin.ID, ListFilter{Scope: ListScopeAll, Status: &pending}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)

	_, err = f.svc.List(f.ctx, f.buyer.ID, ListFilter{Scope: ListScopeAll}, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
	_, err = f.svc.List(f.ctx, f.buyer.ID, ListFilter{Scope: ListScopeSeller}, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
	_, err = f.svc.List(f.ctx, f.buyer.ID, ListFilter{}, pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestStats(t *testing.T) {
	f := newOrderFixture(t)
	paidA, _ := f.placeOrder(2000, 5)
	paidB, _ := f.placeOrder(6000, 5)
	f.placeOrder(3000, 5)

	for _, o := range []*models.Order{paidA, paidB} {
		_, err := f.svc.ProcessPayment(f.ctx, ProcessPaymentInput{OrderID: o.ID, ActorID: f.buyer.ID})
		require.NoError(t, err)
	}

	stats, err := f.svc.Stats(f.ctx, f.admin.ID, StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.CountsByStatus[enums.OrderStatusPaid])
	assert.Equal(t, int64(1), stats.CountsByStatus[enums.OrderStatusPending])
	assert.Equal(t, int64(2), stats.PaidOrders)
	assert.Equal(t, paidA.TotalCents+paidB.TotalCents, stats.RevenueCents)
	assert.Equal(t, (paidA.TotalCents+paidB.TotalCents)/2, stats.AverageOrderValueCents)

	sellerStats, err := f.svc.Stats(f.ctx, f.sellerA.ID, StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sellerStats.TotalOrders)
	assert.Equal(t, int64(8000), sellerStats.RevenueCents)

	strangerStats, err := f.svc.Stats(f.ctx, f.stranger.ID, StatsFilter{})
	require.NoError(t, err)
	assert.Zero(t, strangerStats.TotalOrders)
	assert.Zero(t, strangerStats.AverageOrderValueCents)
}

func TestExpirePending(t *testing.T) {
	f := newOrderFixture(t)
	stale, product := f.placeOrder(2000, 5)
	f.now = f.now.Add(80 * time.Hour)
	fresh, _ := f.placeOrder(2000, 5)

	expired, err := f.svc.ExpirePending(f.ctx, 72*time.Hour, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.svc.Get(f.ctx, f.admin.ID, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Order.Status)
	assert.Equal(t, 5, dbtest.ProductStock(t, f.conn, product.ID))

	history := f.history(stale.ID)
	last := history[len(history)-1]
	assert.Nil(t, last.ActorID)
	assert.Equal(t, enums.UserRoleAdmin, last.ActorRole)

	got, err = f.svc.Get(f.ctx, f.admin.ID, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Order.Status)
}

func TestCloseReturnWindows(t *testing.T) {
	f := newOrderFixture(t)
	order, _ := f.placeOrder(2000, 5)
	order = f.drive(order, enums.OrderStatusConfirmed, enums.OrderStatusProcessing,
		enums.OrderStatusShipped, enums.OrderStatusDelivered)
	require.True(t, order.CanReturn)

	closed, err := f.svc.CloseReturnWindows(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	f.now = f.now.Add(31 * 24 * time.Hour)
	closed, err = f.svc.CloseReturnWindows(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	got, err := f.svc.Get(f.ctx, f.buyer.ID, order.ID)
	require.NoError(t, err)
	assert.False(t, got.Order.CanReturn)
}
