// Package observability provides Prometheus metrics instrumentation for the
// analysis engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// RUN METRICS
// =============================================================================

var (
	runExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscout_run_executions_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"pipeline", "status"}, // status: success, error, cancelled
	)

	runDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careerscout_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"pipeline"},
	)
)

// =============================================================================
// STAGE METRICS
// =============================================================================

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscout_stage_executions_total",
			Help: "Total number of stage executions",
		},
		[]string{"stage", "status"}, // status: success, error, retried
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careerscout_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

// =============================================================================
// COMPLETION METRICS
// =============================================================================

var (
	completionCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscout_completion_calls_total",
			Help: "Total number of completion-service calls",
		},
		[]string{"model", "status"}, // status: success, error
	)

	completionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careerscout_completion_duration_seconds",
			Help:    "Completion call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
)

// =============================================================================
// SESSION METRICS
// =============================================================================

var (
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "careerscout_sessions_active",
			Help: "Number of live sessions in the store",
		},
	)

	healRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscout_heal_repairs_total",
			Help: "Self-healing validator outcomes per tier",
		},
		[]string{"tier", "outcome"}, // outcome: valid, repaired, degraded
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordRunExecution records run-level metrics after a run completes.
func RecordRunExecution(pipeline string, status string, durationMS int) {
	runExecutionsTotal.WithLabelValues(pipeline, status).Inc()
	runDurationSeconds.WithLabelValues(pipeline).Observe(float64(durationMS) / 1000.0)
}

// RecordStageExecution records stage-level metrics after a stage finishes.
func RecordStageExecution(stage string, status string, durationMS int) {
	stageExecutionsTotal.WithLabelValues(stage, status).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(float64(durationMS) / 1000.0)
}

// RecordCompletionCall records one completion-service invocation.
func RecordCompletionCall(model string, status string, durationMS int) {
	completionCallsTotal.WithLabelValues(model, status).Inc()
	completionDurationSeconds.WithLabelValues(model).Observe(float64(durationMS) / 1000.0)
}

// SetActiveSessions updates the live session gauge.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// RecordHealOutcome records a self-healing validator outcome for a tier.
func RecordHealOutcome(tier string, outcome string) {
	healRepairsTotal.WithLabelValues(tier, outcome).Inc()
}
