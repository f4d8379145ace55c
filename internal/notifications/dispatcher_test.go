package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type recordingSink struct {
	mu   sync.Mutex
	envs []Envelope
	err  error
}

func (s *recordingSink) Publish(ctx context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return s.err
}

func (s *recordingSink) received() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.envs...)
}

type countingMetrics struct {
	mu       sync.Mutex
	failures map[string]int
}

func (m *countingMetrics) IncNotificationFailure(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = map[string]int{}
	}
	m.failures[event]++
}

func (m *countingMetrics) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[event]
}

func orderEvent(buyer uuid.UUID, sellers ...uuid.UUID) orders.OrderEvent {
	prev := enums.OrderStatusPaid
	return orders.OrderEvent{
		OrderID:        uuid.New(),
		OrderNumber:    "AC2603010001",
		BuyerID:        buyer,
		SellerIDs:      sellers,
		Status:         enums.OrderStatusProcessing,
		PreviousStatus: &prev,
	}
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{}
	d, err := NewDispatcher(DispatcherParams{Sinks: []Sink{first, second}})
	require.NoError(t, err)
	d.Start(context.Background())

	d.Notify(context.Background(), enums.NotificationEventOrderStatusChanged, orderEvent(uuid.New(), uuid.New()))
	require.NoError(t, d.Close(context.Background()))

	for _, sink := range []*recordingSink{first, second} {
		envs := sink.received()
		require.Len(t, envs, 1)
		assert.Equal(t, enums.NotificationEventOrderStatusChanged, envs[0].Event)
		assert.Equal(t, envelopeVersion, envs[0].Version)
		assert.NotEmpty(t, envs[0].EventID)
		assert.Contains(t, string(envs[0].Data), `"order_number":"AC2603010001"`)
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	sink := &recordingSink{err: errors.New("topic unavailable")}
	metrics := &countingMetrics{}
	d, err := NewDispatcher(DispatcherParams{Sinks: []Sink{sink}, Metrics: metrics})
	require.NoError(t, err)
	d.Start(context.Background())

	d.Notify(context.Background(), enums.NotificationEventOrderPaid, orderEvent(uuid.New()))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, metrics.count(string(enums.NotificationEventOrderPaid)))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	metrics := &countingMetrics{}
	d, err := NewDispatcher(DispatcherParams{Sinks: []Sink{sink}, BufferSize: 1, Metrics: metrics})
	require.NoError(t, err)

	// not started: the single slot fills and the second event is dropped
	d.Notify(context.Background(), enums.NotificationEventOrderCreated, orderEvent(uuid.New()))
	d.Notify(context.Background(), enums.NotificationEventOrderCreated, orderEvent(uuid.New()))
	assert.Equal(t, 1, metrics.count(string(enums.NotificationEventOrderCreated)))

	require.NoError(t, d.Close(context.Background()))
	d.Notify(context.Background(), enums.NotificationEventOrderCreated, orderEvent(uuid.New()))
	assert.Equal(t, 2, metrics.count(string(enums.NotificationEventOrderCreated)))
}

func TestDispatcherCloseHonoursContext(t *testing.T) {
	block := make(chan struct{})
	d, err := NewDispatcher(DispatcherParams{Sinks: []Sink{sinkFunc(func(ctx context.Context, env Envelope) error {
		<-block
		return nil
	})}})
	require.NoError(t, err)
	d.Start(context.Background())
	d.Notify(context.Background(), enums.NotificationEventOrderCreated, orderEvent(uuid.New()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(block)
}

type sinkFunc func(ctx context.Context, env Envelope) error

func (f sinkFunc) Publish(ctx context.Context, env Envelope) error { return f(ctx, env) }

func TestInboxSinkWritesOnePerRecipient(t *testing.T) {
	repo := &fakeRepository{}
	sink, err := NewInboxSink(repo)
	require.NoError(t, err)

	buyer, seller := uuid.New(), uuid.New()
	event := orderEvent(buyer, seller, seller)
	env, err := newEnvelope(enums.NotificationEventOrderStatusChanged, event, time.Now())
	require.NoError(t, err)
	require.NoError(t, sink.Publish(context.Background(), env))

	require.Len(t, repo.created, 2)
	assert.Equal(t, buyer, repo.created[0].UserID)
	assert.Equal(t, seller, repo.created[1].UserID)
	for _, n := range repo.created {
		assert.Equal(t, "Order updated", n.Title)
		assert.Equal(t, "Order AC2603010001 moved from PAID to PROCESSING", n.Message)
		require.NotNil(t, n.OrderID)
		assert.Equal(t, event.OrderID, *n.OrderID)
		assert.Equal(t, env.EventID, n.EventID)
	}
}

func TestInboxSinkIgnoresUnaddressedPayloads(t *testing.T) {
	repo := &fakeRepository{}
	sink, err := NewInboxSink(repo)
	require.NoError(t, err)

	env, err := newEnvelope(enums.NotificationEventOrderCreated, map[string]string{"k": "v"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, sink.Publish(context.Background(), env))
	assert.Empty(t, repo.created)
}
