// Package metrics exposes Prometheus instrumentation for the backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the backend's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	TradesPerRun prometheus.Histogram
}

// New creates a metrics set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of backtest runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		TradesPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "backtest",
			Name:      "trades_per_run",
			Help:      "Number of ledger entries per completed run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
