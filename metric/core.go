// Package metric provides Prometheus-based metrics collection for the
// ingestion pipeline: projection throughput, dropped-triple accounting, and
// source cache behavior.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all pipeline-level metrics (not source-specific)
type Metrics struct {
	// Projection metrics
	NodesProjected *prometheus.CounterVec
	EdgesProjected *prometheus.CounterVec
	TriplesDropped *prometheus.CounterVec

	// Source cache metrics
	CacheResolves  *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	TypeMismatches prometheus.Counter
}

// Cache resolve outcome label values.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
)

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		NodesProjected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "biograph",
				Subsystem: "projection",
				Name:      "nodes_total",
				Help:      "Total number of nodes projected",
			},
			[]string{"source"},
		),

		EdgesProjected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "biograph",
				Subsystem: "projection",
				Name:      "edges_total",
				Help:      "Total number of edges projected",
			},
			[]string{"source"},
		),

		TriplesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "biograph",
				Subsystem: "projection",
				Name:      "dropped_triples_total",
				Help:      "Total number of triples dropped during projection",
			},
			[]string{"source", "reason"},
		),

		CacheResolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "biograph",
				Subsystem: "cache",
				Name:      "resolves_total",
				Help:      "Source cache resolutions by outcome (hit, miss, stale)",
			},
			[]string{"source", "outcome"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "biograph",
				Subsystem: "cache",
				Name:      "fetch_duration_seconds",
				Help:      "Remote ontology fetch duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"source"},
		),

		TypeMismatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "biograph",
				Subsystem: "schema",
				Name:      "type_mismatches_total",
				Help:      "Total number of schema type mismatches surfaced to callers",
			},
		),
	}
}

// Collectors returns every collector owned by m for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.NodesProjected,
		m.EdgesProjected,
		m.TriplesDropped,
		m.CacheResolves,
		m.FetchDuration,
		m.TypeMismatches,
	}
}
