// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gigboard"

// Metrics groups every collector the server updates.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	UpstreamErrors *prometheus.CounterVec
	EscrowReleases *prometheus.CounterVec
	UsageEvents    *prometheus.CounterVec
	HistorySize    prometheus.Histogram
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_processor_errors_total",
			Help:      "Failed calls to the payment processor by operation.",
		}, []string{"operation"}),
		EscrowReleases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_releases_total",
			Help:      "Escrow release attempts by outcome.",
		}, []string{"outcome"}),
		UsageEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_events_total",
			Help:      "Metered usage quantity by metric.",
		}, []string{"metric"}),
		HistorySize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "billing_history_events",
			Help:      "Number of events returned per billing history request.",
			Buckets:   []float64{0, 1, 5, 10, 20},
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
