// Package telemetry carries the harness's observability: Prometheus
// metrics for operation throughput and divergence counts, and OpenTelemetry
// tracing for per-operation spans.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Per-operation execution metrics
	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec

	// Comparison metrics
	divergencesTotal *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kvdiff_operation_duration_seconds",
				Help:    "Duration of catalog operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"side", "method"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvdiff_operations_total",
				Help: "Total number of catalog operations executed",
			},
			[]string{"side", "method", "result"},
		),
		divergencesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvdiff_divergences_total",
				Help: "Total number of divergence records by classification",
			},
			[]string{"classification"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvdiff_runs_total",
				Help: "Total number of comparison runs by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveOperation records one executed catalog operation.
func (m *Metrics) ObserveOperation(side, method, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(side, method).Observe(duration.Seconds())
	m.operationsTotal.WithLabelValues(side, method, result).Inc()
}

// AddDivergence records one divergence record classification.
func (m *Metrics) AddDivergence(classification string) {
	if m == nil {
		return
	}
	m.divergencesTotal.WithLabelValues(classification).Inc()
}

// AddRun records a completed run with its terminal status.
func (m *Metrics) AddRun(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}
