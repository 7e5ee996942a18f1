// Package middleware provides cross-cutting concerns for the outreach
// pipeline: Prometheus metrics and per-stage tracing and timing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-pitch/infrastructure/llm"
	"github.com/ahrav/go-pitch/infrastructure/units"
	"github.com/ahrav/go-pitch/internal/ports"
)

// Metric and operation names owned by the pipeline itself.
const (
	MetricRunsTotal   = "pitch_runs_total"
	MetricHistorySize = "pitch_history_runs"

	OperationStage = "pipeline_stage"
	OperationRun   = "pipeline_run"
)

// PrometheusMetrics implements ports.MetricsCollector. Known metric names are
// routed to dedicated vectors; anything else lands in the generic
// operation vectors keyed by name.
type PrometheusMetrics struct {
	llmLatency  *prometheus.HistogramVec
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec

	judgeCalls      *prometheus.CounterVec
	generationCalls *prometheus.CounterVec
	generationCost  *prometheus.CounterVec
	draftScore      *prometheus.HistogramVec
	runs            *prometheus.CounterVec

	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	operationValues  *prometheus.HistogramVec
	systemGauges     *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collector and registers every vector with
// reg. A nil reg leaves the vectors unregistered.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    llm.MetricLLMLatency,
			Help:    "Latency of LLM provider requests.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"provider", "model", "status"}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: llm.MetricLLMRequests,
			Help: "LLM provider requests by outcome.",
		}, []string{"provider", "model", "status"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: llm.MetricLLMTokens,
			Help: "Tokens reported by LLM providers.",
		}, []string{"provider", "model", "token_type"}),

		judgeCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: units.MetricJudgeCalls,
			Help: "Attempted judge calls. Not part of the run cost ledger.",
		}, []string{"model", "status"}),
		generationCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: units.MetricGenerationCalls,
			Help: "Persona draft generations by outcome.",
		}, []string{"persona", "status"}),
		generationCost: f.NewCounterVec(prometheus.CounterOpts{
			Name: units.MetricGenerationCost,
			Help: "Estimated cost of successful draft generations.",
		}, []string{"persona"}),
		draftScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    units.MetricDraftScore,
			Help:    "Draft scores by component (final, rule, llm).",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}, []string{"component"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRunsTotal,
			Help: "Completed pipeline runs by status.",
		}, []string{"status"}),

		operationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitch_operation_duration_seconds",
			Help:    "Duration of pipeline stages and runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"operation", "unit", "status"}),
		operationCounter: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_operations_total",
			Help: "Counters without a dedicated vector.",
		}, []string{"metric", "status"}),
		operationValues: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitch_observed_values",
			Help:    "Histogram values without a dedicated vector.",
			Buckets: prometheus.DefBuckets,
		}, []string{"metric"}),
		systemGauges: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pitch_system_state",
			Help: "Current values of pipeline gauges.",
		}, []string{"metric"}),
	}
}

// RecordLatency records the duration of a stage or run.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation, label(labels, "unit"), label(labels, "status")).
		Observe(duration.Seconds())
}

// RecordCounter increments the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMRequests:
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case llm.MetricLLMTokens:
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	case units.MetricJudgeCalls:
		pm.judgeCalls.WithLabelValues(label(labels, "model"), label(labels, "status")).Add(value)
	case units.MetricGenerationCalls:
		pm.generationCalls.WithLabelValues(label(labels, "persona"), label(labels, "status")).Add(value)
	case units.MetricGenerationCost:
		pm.generationCost.WithLabelValues(label(labels, "persona")).Add(value)
	case MetricRunsTotal:
		pm.runs.WithLabelValues(label(labels, "status")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, label(labels, "status")).Add(value)
	}
}

// RecordGauge sets the gauge named by metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value in the histogram named by metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMLatency:
		pm.llmLatency.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Observe(value)
	case units.MetricDraftScore:
		pm.draftScore.WithLabelValues(label(labels, "component")).Observe(value)
	default:
		pm.operationValues.WithLabelValues(metric).Observe(value)
	}
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}
