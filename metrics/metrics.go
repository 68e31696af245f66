// Package metrics exposes the proxy's prometheus counters and gauges:
// request throughput, discovery events, backend health, and rate-limit
// rejections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the proxy registers. Construct one with
// NewMetrics and pass it down to the components that record against it;
// there is no package-level global so tests can register independent
// instances.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveRoutes       prometheus.Gauge
	DiscoveryEvents    *prometheus.CounterVec
	DiscoveryErrors    prometheus.Counter
	BackendHealth      *prometheus.GaugeVec
	RateLimitRejected  *prometheus.CounterVec
}

// NewMetrics registers every collector against reg and returns the
// handle. Passing prometheus.NewRegistry() isolates a test's collectors
// from the global DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roxy",
			Name:      "requests_total",
			Help:      "Total proxied requests by router and response status class.",
		}, []string{"router", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roxy",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency, from accept to response write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"router"}),

		ActiveRoutes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "roxy",
			Name:      "active_routes",
			Help:      "Number of distinct host+path routes currently in the routing table.",
		}),

		DiscoveryEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roxy",
			Name:      "discovery_events_total",
			Help:      "Container discovery events applied to the routing table, by kind.",
		}, []string{"kind"}),

		DiscoveryErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "roxy",
			Name:      "discovery_errors_total",
			Help:      "Errors encountered while reconciling or streaming container events.",
		}),

		BackendHealth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "roxy",
			Name:      "backend_healthy",
			Help:      "1 if the backend's last health check succeeded, 0 otherwise.",
		}, []string{"host", "addr"}),

		RateLimitRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roxy",
			Name:      "rate_limit_rejected_total",
			Help:      "Requests rejected by the rate-limit middleware, by router.",
		}, []string{"router"}),
	}
}

// ObserveRequest records one completed request's outcome.
func (m *Metrics) ObserveRequest(router, statusClass string, seconds float64) {
	m.RequestsTotal.WithLabelValues(router, statusClass).Inc()
	m.RequestDuration.WithLabelValues(router).Observe(seconds)
}

// SetBackendHealth records the latest health check result for one
// backend address.
func (m *Metrics) SetBackendHealth(host, addr string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.BackendHealth.WithLabelValues(host, addr).Set(value)
}
