package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order lifecycle activity. A nil *OrderMetrics is a
// valid no-op recorder.
type OrderMetrics struct {
	created       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stockRejected prometheus.Counter
	notifyFailed  *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, by source (cart or quote).",
	}, []string{"source"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})
	stockRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_stock_rejections_total",
		Help: "Order creations aborted for insufficient stock.",
	})
	notifyFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Notifications the sink failed to accept.",
	}, []string{"event"})
	reg.MustRegister(created, transitions, stockRejected, notifyFailed)
	return &OrderMetrics{
		created:       created,
		transitions:   transitions,
		stockRejected: stockRejected,
		notifyFailed:  notifyFailed,
	}
}

func (m *OrderMetrics) IncCreated(source string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) IncStockRejected() {
	if m == nil || m.stockRejected == nil {
		return
	}
	m.stockRejected.Inc()
}

// IncNotificationFailure is called by the notification dispatcher.
func (m *OrderMetrics) IncNotificationFailure(event string) {
	if m == nil || m.notifyFailed == nil {
		return
	}
	m.notifyFailed.WithLabelValues(normalizeLabel(event)).Inc()
}
