package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a centralized interface for collecting the handful of signals
// this core actually emits: LLM call latency and outcome, rate-limiter wait
// time, tool execution duration/error counts, and execution cache hit/miss.
// Scoped to this core's own operations — no channel message flow, HTTP
// routing, or webhook delivery metrics, since none of those surfaces exist
// here.
type Metrics struct {
	// LLMRequestDuration measures CallLLM latency in seconds, including any
	// admission wait and retries.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM calls by outcome.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// RateLimiterWaitSeconds measures time spent blocked in Acquire.
	RateLimiterWaitSeconds prometheus.Histogram

	// RateLimiterRetries counts CallLLM retries by classification.
	// Labels: reason (rate_limit|other)
	RateLimiterRetries *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations by outcome.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// CacheLookups counts Execution Cache LatestFor calls by outcome.
	// Labels: outcome (hit|miss)
	CacheLookups *prometheus.CounterVec

	// SessionsActive is a gauge of in-flight Agent Loop sessions.
	SessionsActive prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics. Call once at
// application startup.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reportloom_llm_request_duration_seconds",
				Help:    "Duration of LLM calls in seconds, including admission wait and retries",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportloom_llm_requests_total",
				Help: "Total LLM calls by provider, model, and outcome",
			},
			[]string{"provider", "model", "status"},
		),

		RateLimiterWaitSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reportloom_ratelimit_wait_seconds",
				Help:    "Time spent blocked in the rate controller's Acquire",
				Buckets: []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),

		RateLimiterRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportloom_ratelimit_retries_total",
				Help: "Total CallLLM retries by classification",
			},
			[]string{"reason"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportloom_tool_executions_total",
				Help: "Total tool executions by tool name and outcome",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reportloom_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"tool_name"},
		),

		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportloom_execution_cache_lookups_total",
				Help: "Execution cache LatestFor lookups by outcome",
			},
			[]string{"outcome"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reportloom_sessions_active",
				Help: "Current number of in-flight agent loop sessions",
			},
		),
	}
}

// RecordLLMRequest records a completed LLM call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, seconds float64) {
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
}

// RecordRateLimiterWait records time spent blocked in Acquire.
func (m *Metrics) RecordRateLimiterWait(seconds float64) {
	m.RateLimiterWaitSeconds.Observe(seconds)
}

// RecordRetry records a CallLLM retry by classification.
func (m *Metrics) RecordRetry(reason string) {
	m.RateLimiterRetries.WithLabelValues(reason).Inc()
}

// RecordToolExecution records a completed tool dispatch.
func (m *Metrics) RecordToolExecution(toolName, status string, seconds float64) {
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(seconds)
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
}

// RecordCacheLookup records an Execution Cache LatestFor outcome.
func (m *Metrics) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// SessionStarted marks a new agent loop session as in-flight.
func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
}

// SessionFinished marks an agent loop session as complete.
func (m *Metrics) SessionFinished() {
	m.SessionsActive.Dec()
}
