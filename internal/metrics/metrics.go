// Package metrics provides Prometheus metrics for driftwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "driftwatch"
)

// Cycle metrics
var (
	// CyclesTotal counts evaluation cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total evaluation cycles by outcome",
		},
		[]string{"outcome"},
	)

	// CycleDuration tracks evaluation cycle latency.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Evaluation cycle latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// Scoring metrics
var (
	// KeysEvaluated counts metric keys evaluated.
	KeysEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "keys_evaluated_total",
			Help:      "Total metric keys evaluated",
		},
	)

	// KeysSkipped counts keys skipped per cycle by reason.
	KeysSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "keys_skipped_total",
			Help:      "Total metric keys skipped by reason",
		},
		[]string{"reason"},
	)

	// SamplesRecorded counts samples fed into baselines.
	SamplesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "samples_recorded_total",
			Help:      "Total samples recorded into baseline windows",
		},
	)
)

// Log analysis metrics
var (
	// LogLinesScanned counts scanned log lines.
	LogLinesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logs",
			Name:      "lines_scanned_total",
			Help:      "Total log lines scanned for patterns",
		},
	)

	// LogPatternHits counts pattern matches by pattern.
	LogPatternHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logs",
			Name:      "pattern_hits_total",
			Help:      "Total log pattern matches by pattern",
		},
		[]string{"pattern"},
	)
)

// Alerting metrics
var (
	// AlertsOpened counts opened alert events by source.
	AlertsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "opened_total",
			Help:      "Total alert events opened by source",
		},
		[]string{"source"},
	)

	// AlertsResolved counts resolved alert events by source.
	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "resolved_total",
			Help:      "Total alert events resolved by source",
		},
		[]string{"source"},
	)

	// DispatchErrors counts notification dispatch failures.
	DispatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "dispatch_errors_total",
			Help:      "Total notification dispatch failures",
		},
	)
)
