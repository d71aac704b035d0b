// Package metrics registers the engine's Prometheus instrumentation. The
// host decides whether and where to expose the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBQueriesInFlight tracks sampling queries currently holding a DB
	// permit. Its maximum observed value must never exceed the configured
	// concurrent query limit.
	DBQueriesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "privya",
		Subsystem: "sampler",
		Name:      "db_queries_in_flight",
		Help:      "Sampling queries currently executing against the scanned database.",
	})

	// SamplingErrors counts per-column sampling failures.
	SamplingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "privya",
		Subsystem: "sampler",
		Name:      "errors_total",
		Help:      "Per-column sampling failures.",
	})

	// EventsDropped counts scan events dropped because a subscriber queue
	// overflowed (drop-oldest policy).
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "privya",
		Subsystem: "scanner",
		Name:      "events_dropped_total",
		Help:      "Scan events dropped due to slow subscribers.",
	})

	// ScansByStatus counts terminal scan outcomes.
	ScansByStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "privya",
		Subsystem: "scanner",
		Name:      "scans_total",
		Help:      "Scans by terminal status.",
	}, []string{"status"})

	// NERBreakerState exposes the NER circuit breaker state
	// (0 closed, 1 open, 2 half-open).
	NERBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "privya",
		Subsystem: "ner",
		Name:      "breaker_state",
		Help:      "NER circuit breaker state: 0 closed, 1 open, 2 half-open.",
	})

	// DetectionDuration observes per-column pipeline latency.
	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "privya",
		Subsystem: "detect",
		Name:      "column_duration_seconds",
		Help:      "Per-column detection pipeline duration.",
		Buckets:   prometheus.DefBuckets,
	})
)
