package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	generations   *prometheus.CounterVec
	modelAttempts *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	usageCommits  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		generations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadforge_generations_total",
				Help: "Total thread generations by outcome",
			},
			[]string{"outcome"}, // ai, fallback, refused, error
		),
		modelAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadforge_model_attempts_total",
				Help: "Model gateway attempts by model and result",
			},
			[]string{"model", "result"},
		),
		stageLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadforge_stage_duration_seconds",
				Help:    "Duration of orchestration stages in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"stage"},
		),
		usageCommits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadforge_usage_commits_total",
				Help: "Usage quota commits by plan",
			},
			[]string{"plan"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordGeneration records a finished generation by outcome.
func (r *Recorder) RecordGeneration(outcome string) {
	r.generations.WithLabelValues(outcome).Inc()
}

// RecordModelAttempt records one model gateway attempt.
func (r *Recorder) RecordModelAttempt(model, result string) {
	r.modelAttempts.WithLabelValues(model, result).Inc()
}

// RecordStageLatency records an orchestration stage duration in seconds.
func (r *Recorder) RecordStageLatency(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordUsageCommit records a committed quota unit.
func (r *Recorder) RecordUsageCommit(plan string) {
	r.usageCommits.WithLabelValues(plan).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
