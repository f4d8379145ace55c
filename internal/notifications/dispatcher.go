package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const defaultBufferSize = 256

type failureRecorder interface {
	IncNotificationFailure(event string)
}

type DispatcherParams struct {
	Sinks      []Sink
	BufferSize int
	Workers    int
	Logger     *logger.Logger
	Metrics    failureRecorder
	Clock      func() time.Time
}

// Dispatcher hands notification events to its sinks off the request path.
// Notify never blocks; when the buffer is full the event is dropped and
// counted as a failure.
type Dispatcher struct {
	sink    fanout
	queue   chan Envelope
	workers int
	logg    *logger.Logger
	metrics failureRecorder
	clock   func() time.Time

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	if len(p.Sinks) == 0 {
		return nil, errors.New("at least one notification sink required")
	}
	if p.BufferSize <= 0 {
		p.BufferSize = defaultBufferSize
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Dispatcher{
		sink:    fanout(p.Sinks),
		queue:   make(chan Envelope, p.BufferSize),
		workers: p.Workers,
		logg:    p.Logger,
		metrics: p.Metrics,
		clock:   p.Clock,
	}, nil
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Notify enqueues an event. It is safe to call after Close; the event is dropped.
func (d *Dispatcher) Notify(ctx context.Context, event enums.NotificationEvent, payload any) {
	env, err := newEnvelope(event, payload, d.clock())
	if err != nil {
		d.fail(ctx, event, "notification payload rejected", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.fail(ctx, event, "notification dropped after shutdown", nil)
		return
	}
	select {
	case d.queue <- env:
	default:
		d.fail(ctx, event, "notification buffer full, dropping event", nil)
	}
}

// Close stops accepting events and waits for queued ones to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for env := range d.queue {
		d.deliver(ctx, env)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, env Envelope) {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"event":    string(env.Event),
		"event_id": env.EventID,
	})
	if err := d.sink.Publish(ctx, env); err != nil {
		d.fail(ctx, env.Event, "notification delivery failed", err)
		return
	}
	d.logg.Debug(ctx, "notification delivered")
}

func (d *Dispatcher) fail(ctx context.Context, event enums.NotificationEvent, msg string, err error) {
	if err != nil {
		ctx = d.logg.WithField(ctx, "error", err.Error())
	}
	d.logg.Warn(d.logg.WithField(ctx, "event", string(event)), msg)
	if d.metrics != nil {
		d.metrics.IncNotificationFailure(string(event))
	}
}
