// Package metrics declares the Prometheus instrumentation surface
// exposed at GET /metrics: query outcomes, cache hit ratio, gate queue
// depth, and upstream provider latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric the trend engine updates.
type Registry struct {
	QueriesTotal    *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	GateQueueDepth  prometheus.Gauge
	ProviderLatency *prometheus.HistogramVec
	CircuitOpen     prometheus.Gauge
}

// NewRegistry builds and registers every metric against the default
// Prometheus registry, matching the teacher's NewMetricsRegistry
// pattern.
func NewRegistry() *Registry {
	return &Registry{
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trendscore_queries_total",
			Help: "Total trend queries processed, by outcome",
		}, []string{"outcome"}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trendscore_cache_hits_total",
			Help: "Fresh-tier cache hits",
		}),

		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trendscore_cache_misses_total",
			Help: "Fresh-tier cache misses",
		}),

		GateQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trendscore_gate_queue_depth",
			Help: "Requests currently waiting on the concurrency gate",
		}),

		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendscore_provider_latency_seconds",
			Help:    "Upstream connector call latency by operation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"operation"}),

		CircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trendscore_circuit_open",
			Help: "1 if the upstream sequence breaker is open, 0 otherwise",
		}),
	}
}
