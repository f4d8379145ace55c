package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncCreated("cart")
	m.IncCreated("cart")
	m.IncCreated("quote")
	m.IncTransition("PENDING", "CANCELLED")
	m.IncStockRejected()
	m.IncNotificationFailure("order.created")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "orders_created_total", "source", "cart")
	require.NoError(t, err)
	require.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "orders_created_total", "source", "quote")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "order_status_transitions_total", "to", "CANCELLED")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "notification_failures_total", "event", "order.created")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	rejected := findMetricFamily(mfs, "order_stock_rejections_total")
	require.NotNil(t, rejected)
	require.Equal(t, 1.0, rejected.GetMetric()[0].GetCounter().GetValue())
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	require.NotPanics(t, func() {
		m.IncCreated("cart")
		m.IncTransition("PAID", "REFUNDED")
		m.IncStockRejected()
		m.IncNotificationFailure("order.paid")
	})
	require.NotPanics(t, func() {
		NewOrderMetrics(nil).IncCreated("cart")
	})
}
