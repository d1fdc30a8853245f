// Package metrics provides Prometheus instrumentation for Tabula.
//
// # Overview
//
// The engine records:
//   - how many times each relational operator ran and how long it took
//   - how many column indexes were built (each column builds at most once)
//   - which side of each equi-join was indexed, and whether the index was reused
//   - rows loaded and written per serialization format
//
// All collectors are registered on the default registry through promauto, so
// any process embedding the engine can expose them with promhttp. Batch
// callers such as the CLI dump them with WriteText instead.
//
// # Basic Usage
//
//	start := time.Now()
//	result, err := t.JoinOnColumns("id", other, "user_id")
//	metrics.ObserveOperation("join", start)
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	// Operations counts executed table operators.
	// Labels: operation (select, filter, join, group_by, ...)
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabula_operations_total",
			Help: "Total number of table operations executed",
		},
		[]string{"operation"},
	)

	// OperationDuration tracks operator latency in seconds.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tabula_operation_duration_seconds",
			Help: "Table operation latency in seconds",
			Buckets: []float64{
				1e-6, // 1μs - projections and renames
				1e-5,
				1e-4,
				1e-3, // 1ms - filters over small tables
				1e-2,
				1e-1, // 100ms - joins and sorts over large tables
				1,
				10,
			},
		},
		[]string{"operation"},
	)

	// IndexBuilds counts column indexes built.
	IndexBuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabula_index_builds_total",
			Help: "Total number of column indexes built",
		},
	)

	// JoinStrategy counts join strategy decisions.
	// Labels: indexed (self/other), index (reused/built)
	JoinStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabula_join_strategy_total",
			Help: "Equi-join strategy decisions by indexed side and index reuse",
		},
		[]string{"indexed", "index"},
	)

	// RowsLoaded counts rows materialized from external formats.
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabula_rows_loaded_total",
			Help: "Total number of rows loaded",
		},
		[]string{"format"},
	)

	// RowsWritten counts rows serialized to external formats.
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabula_rows_written_total",
			Help: "Total number of rows written",
		},
		[]string{"format"},
	)
)

// ObserveOperation records one execution of operation that began at start.
func ObserveOperation(operation string, start time.Time) {
	Operations.WithLabelValues(operation).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the operation the timer measures.
func (t *Timer) Name() string {
	return t.name
}

// Stop records the operation and returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	Operations.WithLabelValues(t.name).Inc()
	OperationDuration.WithLabelValues(t.name).Observe(duration.Seconds())
	return duration
}

// WriteText writes every metric family of the default gatherer to w in the
// Prometheus text exposition format.
func WriteText(w io.Writer) error {
	return WriteTextFrom(prometheus.DefaultGatherer, w)
}

// WriteTextFrom writes the metric families of g to w.
func WriteTextFrom(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
