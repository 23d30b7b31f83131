// Package observability provides Prometheus metrics for the batch jobs.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run paths.
const (
	PathDaily    = "daily"
	PathTuning   = "tuning"
	PathBacktest = "backtest"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Decision metrics
	SignalsGenerated *prometheus.CounterVec
	CircuitBreaker   prometheus.Gauge
	LastRegimeScore  prometheus.Gauge
	LastRiskScore    prometheus.Gauge
	SignalsPublished *prometheus.CounterVec

	// Tuning metrics
	ParameterChanges   *prometheus.CounterVec
	ValidationVerdicts *prometheus.CounterVec
	VersionsPublished  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "capital_allocator"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Run metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of runs by path and status",
		}, []string{"path", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"path"}),

		// Decision metrics
		SignalsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "signals_generated_total",
			Help:      "Total number of daily signals written by action",
		}, []string{"action", "signal_type"}),
		CircuitBreaker: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "circuit_breaker_active",
			Help:      "1 when the last signal was generated with the circuit breaker active",
		}),
		LastRegimeScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "regime_score",
			Help:      "Regime score of the last signal",
		}),
		LastRiskScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "risk_score",
			Help:      "Risk score of the last signal",
		}),
		SignalsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "signals_published_total",
			Help:      "Signals handed to the execution collaborator by outcome",
		}, []string{"outcome"}),

		// Tuning metrics
		ParameterChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "parameter_changes_total",
			Help:      "Parameter nudges by rule",
		}, []string{"rule"}),
		ValidationVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "validation_verdicts_total",
			Help:      "Out-of-sample validation verdicts",
		}, []string{"verdict"}),
		VersionsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "config_versions_published_total",
			Help:      "Configuration versions published",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Store call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of store call errors",
		}, []string{"store", "operation"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last run that did not fail",
		}, []string{"path"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile writes all metrics in text format for the node exporter
// textfile collector. An empty path is a no-op.
func (m *Metrics) WriteToTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// RecordRun records a finished run. Failed runs do not move the health gauge.
func (m *Metrics) RecordRun(path, status string, d time.Duration, at time.Time) {
	m.RunsTotal.WithLabelValues(path, status).Inc()
	m.RunDuration.WithLabelValues(path).Observe(d.Seconds())
	if status != "failed" {
		m.LastSuccessfulRun.WithLabelValues(path).Set(float64(at.Unix()))
	}
}

// RecordSignal records a written signal.
func (m *Metrics) RecordSignal(action, signalType string, regime, risk float64, breaker bool) {
	m.SignalsGenerated.WithLabelValues(action, signalType).Inc()
	m.LastRegimeScore.Set(regime)
	m.LastRiskScore.Set(risk)
	if breaker {
		m.CircuitBreaker.Set(1)
	} else {
		m.CircuitBreaker.Set(0)
	}
}

// RecordPublish records a publication attempt.
func (m *Metrics) RecordPublish(err error) {
	if err != nil {
		m.SignalsPublished.WithLabelValues("error").Inc()
		return
	}
	m.SignalsPublished.WithLabelValues("ok").Inc()
}

// RecordDBQuery records store call metrics.
func (m *Metrics) RecordDBQuery(store, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(store, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}

// Timed runs fn and records its duration against store and operation.
func (m *Metrics) Timed(store, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.RecordDBQuery(store, operation, time.Since(start), err)
	return err
}
