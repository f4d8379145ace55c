package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const defaultExpiryBatch = 200

type pendingExpirer interface {
	ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type returnWindowCloser interface {
	CloseReturnWindows(ctx context.Context) (int64, error)
}

// PendingExpiryJobParams configure the unpaid order expiry job.
type PendingExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    pendingExpirer
	OlderThan time.Duration
	BatchSize int
}

// NewPendingExpiryJob cancels PENDING orders that were never paid and puts
// their stock back.
func NewPendingExpiryJob(params PendingExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.OlderThan <= 0 {
		return nil, fmt.Errorf("pending order ttl must be positive")
	}
	if params.BatchSize <= 0 {
		params.BatchSize = defaultExpiryBatch
	}
	return &pendingExpiryJob{
		logg:      params.Logger,
		orders:    params.Orders,
		olderThan: params.OlderThan,
		batch:     params.BatchSize,
	}, nil
}

type pendingExpiryJob struct {
	logg      *logger.Logger
	orders    pendingExpirer
	olderThan time.Duration
	batch     int
}

func (j *pendingExpiryJob) Name() string { return "pending-order-expiry" }

func (j *pendingExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpirePending(ctx, j.olderThan, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"older_than": j.olderThan.String(),
		"expired":    expired,
	})
	if err != nil {
		return fmt.Errorf("expire pending orders: %w", err)
	}
	j.logg.Info(logCtx, "pending order expiry complete")
	return nil
}

// NewReturnWindowJob flips can_return off for delivered orders whose
// return deadline has passed.
func NewReturnWindowJob(logg *logger.Logger, orders returnWindowCloser) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &returnWindowJob{logg: logg, orders: orders}, nil
}

type returnWindowJob struct {
	logg   *logger.Logger
	orders returnWindowCloser
}

func (j *returnWindowJob) Name() string { return "return-window-close" }

func (j *returnWindowJob) Run(ctx context.Context) error {
	closed, err := j.orders.CloseReturnWindows(ctx)
	if err != nil {
		return fmt.Errorf("close return windows: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "orders_closed", closed), "return windows closed")
	return nil
}
