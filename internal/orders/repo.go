package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "order_number") {
			return fmt.Errorf("%w: %s", errOrderNumberTaken, order.OrderNumber)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.findOne(ctx, "order_number = ?", number)
}

func (r *repository) findOne(ctx context.Context, where string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC").Order("id ASC") }).
		Where(where, arg).
		First(&order).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, q Query, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Order
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Scopes(orderFilters(q), pagination.Scope("orders", cursor, params.Limit)).
		Preload("Items").
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return pagination.Finish(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// LastOrderNumber returns the highest number issued under dayPrefix, or ""
// when the day has none yet.
func (r *repository) LastOrderNumber(ctx context.Context, dayPrefix string) (string, error) {
	var last sql.NullString
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number LIKE ?", dayPrefix+"%").
		Select("MAX(order_number)").
		Row().
		Scan(&last)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read order number sequence")
	}
	return last.String, nil
}

// CompareAndSwap applies updates only while the order still matches guard.
func (r *repository) CompareAndSwap(ctx context.Context, id uuid.UUID, guard Guard, updates map[string]any) error {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, guard.Status)
	if guard.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *guard.PaymentStatus)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update order")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently").
			WithReason(pkgerrors.ReasonConcurrentUpdate).
			WithDetails(map[string]any{"expected_status": guard.Status})
	}
	return nil
}

// SetDisputeFlag flips has_dispute. Opening fails with DISPUTE_ALREADY_OPEN
// when another dispute holds the flag.
func (r *repository) SetDisputeFlag(ctx context.Context, id uuid.UUID, open bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND has_dispute = ?", id, !open).
		Updates(map[string]any{"has_dispute": open})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update dispute flag")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if open {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open dispute").
			WithReason(pkgerrors.ReasonDisputeAlreadyOpen)
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "order has no open dispute").
		WithReason(pkgerrors.ReasonConcurrentUpdate)
}

// AppendHistory stores event at the next position of the order's history.
func (r *repository) AppendHistory(ctx context.Context, event *models.OrderStatusEvent) error {
	var last int
	err := r.db.WithContext(ctx).
		Model(&models.OrderStatusEvent{}).
		Where("order_id = ?", event.OrderID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&last).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read order history position")
	}
	event.Position = last + 1
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append order history")
	}
	return nil
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&events).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order history")
	}
	return events, nil
}

func (r *repository) InsertPayment(ctx context.Context, txn *models.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if db.IsUniqueViolation(err, "reference") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment reference already recorded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment transaction")
	}
	return nil
}

func (r *repository) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("processed_at ASC").
		Order("type ASC").
		Find(&txns).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment transactions")
	}
	return txns, nil
}

func (r *repository) Stats(ctx context.Context, q Query) (*Stats, error) {
	var counts []struct {
		Status enums.OrderStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Scopes(orderFilters(q)).
		Select("orders.status AS status, COUNT(*) AS count").
		Group("orders.status").
		Scan(&counts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders by status")
	}

	stats := &Stats{CountsByStatus: make(map[enums.OrderStatus]int64)}
	for _, row := range counts {
		stats.CountsByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
	}

	var revenue struct {
		Revenue int64
		Paid    int64
	}
	var rq *gorm.DB
	if q.SellerID != nil {
		sellerless := q
		sellerless.SellerID = nil
		rq = r.db.WithContext(ctx).
			Table("order_items").
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Scopes(orderFilters(sellerless)).
			Where("order_items.seller_id = ?", *q.SellerID).
			Select("COALESCE(SUM(order_items.price_cents * order_items.quantity), 0) AS revenue, COUNT(DISTINCT orders.id) AS paid")
	} else {
		rq = r.db.WithContext(ctx).
			Model(&models.Order{}).
			Scopes(orderFilters(q)).
			Select("COALESCE(SUM(orders.total_cents), 0) AS revenue, COUNT(*) AS paid")
	}
	err = rq.Where("orders.payment_status = ?", enums.PaymentStatusCompleted).Scan(&revenue).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum order revenue")
	}
	stats.RevenueCents = revenue.Revenue
	stats.PaidOrders = revenue.Paid
	if revenue.Paid > 0 {
		stats.AverageOrderValueCents = revenue.Revenue / revenue.Paid
	}
	return stats, nil
}

// ListStalePending returns PENDING orders created before the cutoff, oldest
// first.
func (r *repository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale pending orders")
	}
	return ids, nil
}

// CloseReturnWindows clears can_return on orders whose deadline passed.
func (r *repository) CloseReturnWindows(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("can_return = ? AND return_deadline IS NOT NULL AND return_deadline < ?", true, now).
		Updates(map[string]any{"can_return": false, "updated_at": now})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "close return windows")
	}
	return res.RowsAffected, nil
}

func orderFilters(q Query) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if q.BuyerID != nil {
			tx = tx.Where("orders.user_id = ?", *q.BuyerID)
		}
		if q.SellerID != nil {
			tx = tx.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.seller_id = ?)", *q.SellerID)
		}
		if q.Status != nil {
			tx = tx.Where("orders.status = ?", *q.Status)
		}
		if q.From != nil {
			tx = tx.Where("orders.created_at >= ?", *q.From)
		}
		if q.To != nil {
			tx = tx.Where("orders.created_at < ?", *q.To)
		}
		return tx
	}
}
