package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRequest("api", "2xx", 0.05)
	m.ObserveRequest("api", "2xx", 0.1)

	var metric dto.Metric
	require.NoError(t, m.RequestsTotal.WithLabelValues("api", "2xx").Write(&metric))
	require.Equal(t, float64(2), metric.GetCounter().GetValue())
}

func TestSetBackendHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetBackendHealth("example.com", "10.0.0.1:80", true)

	var metric dto.Metric
	require.NoError(t, m.BackendHealth.WithLabelValues("example.com", "10.0.0.1:80").Write(&metric))
	require.Equal(t, float64(1), metric.GetGauge().GetValue())

	m.SetBackendHealth("example.com", "10.0.0.1:80", false)
	require.NoError(t, m.BackendHealth.WithLabelValues("example.com", "10.0.0.1:80").Write(&metric))
	require.Equal(t, float64(0), metric.GetGauge().GetValue())
}

func TestDiscoveryEventsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.DiscoveryEvents.WithLabelValues("started").Inc()
	m.DiscoveryEvents.WithLabelValues("started").Inc()
	m.DiscoveryEvents.WithLabelValues("stopped").Inc()

	var metric dto.Metric
	require.NoError(t, m.DiscoveryEvents.WithLabelValues("started").Write(&metric))
	require.Equal(t, float64(2), metric.GetCounter().GetValue())
}
