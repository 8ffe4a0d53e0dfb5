// Package observability exposes the Prometheus metrics of the analysis
// engine. Metrics implements both analysis.Recorder and session.Recorder.
package observability

import (
	"time"

	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/analysis/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "critic"

type Metrics struct {
	// TierRunsTotal labels: tier, outcome (ok, partial, failed, timeout)
	TierRunsTotal *prometheus.CounterVec

	TierDurationSeconds *prometheus.HistogramVec

	// WorkerOutcomesTotal labels: tier, worker, status (success, failure)
	WorkerOutcomesTotal *prometheus.CounterVec

	WorkerDurationSeconds *prometheus.HistogramVec

	ActiveSessions prometheus.Gauge

	// SessionsTotal labels: stage (complete, error, cancelled)
	SessionsTotal *prometheus.CounterVec

	SessionDurationSeconds prometheus.Histogram

	// SuggestionTransitionsTotal labels: status (resolved, dismissed, retracted)
	SuggestionTransitionsTotal *prometheus.CounterVec
}

var (
	_ analysis.Recorder = (*Metrics)(nil)
	_ session.Recorder  = (*Metrics)(nil)
)

// NewMetrics registers every metric on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TierRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "tier",
			Name:      "runs_total",
			Help:      "Tier executions by outcome.",
		}, []string{"tier", "outcome"}),
		TierDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "tier",
			Name:      "duration_seconds",
			Help:      "Wall time until a tier settled.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30, 60, 120},
		}, []string{"tier"}),
		WorkerOutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "worker",
			Name:      "outcomes_total",
			Help:      "Worker invocations by result.",
		}, []string{"tier", "worker", "status"}),
		WorkerDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "worker",
			Name:      "duration_seconds",
			Help:      "Worker latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tier", "worker"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions started and not yet finished.",
		}),
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Finished sessions by terminal stage.",
		}, []string{"stage"}),
		SessionDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Time from start to terminal stage.",
			Buckets:   []float64{0.5, 1, 3, 5, 10, 30, 60, 120, 300},
		}),
		SuggestionTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "suggestion",
			Name:      "transitions_total",
			Help:      "Suggestions leaving the active status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveTier(tier analysis.Tier, elapsed time.Duration, succeeded, failed int, timedOut bool) {
	outcome := "ok"
	switch {
	case succeeded == 0 && timedOut:
		outcome = "timeout"
	case succeeded == 0:
		outcome = "failed"
	case failed > 0:
		outcome = "partial"
	}
	m.TierRunsTotal.WithLabelValues(string(tier), outcome).Inc()
	m.TierDurationSeconds.WithLabelValues(string(tier)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveWorker(tier analysis.Tier, workerID string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.WorkerOutcomesTotal.WithLabelValues(string(tier), workerID, status).Inc()
	m.WorkerDurationSeconds.WithLabelValues(string(tier), workerID).Observe(elapsed.Seconds())
}

func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded(stage session.Stage, elapsed time.Duration) {
	m.ActiveSessions.Dec()
	m.SessionsTotal.WithLabelValues(string(stage)).Inc()
	m.SessionDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveSuggestion counts a suggestion status change.
func (m *Metrics) ObserveSuggestion(status string) {
	m.SuggestionTransitionsTotal.WithLabelValues(status).Inc()
}
