// Package observability provides structured logging and Prometheus metrics
// for the Agent Loop core: LLM call latency/outcome, rate-limiter wait time,
// tool execution duration/error counts, and execution cache hit/miss.
//
// Scoped to this core's own concerns — no channel message flow, HTTP
// routing, database-query tracing, or OpenTelemetry spans, since none of
// those surfaces exist here.
//
// # Metrics
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	resp, err := provider.Complete(ctx, req)
//	status := "success"
//	if err != nil {
//	    status = "error"
//	}
//	metrics.RecordLLMRequest("anthropic", req.Model, status, time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on log/slog with session/prompt/user correlation and
// automatic redaction of the credentials this process holds (LLM API keys,
// the Jira token, store DSNs) from log arguments:
//
//	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	ctx = observability.WithSessionID(ctx, session.ID)
//	logger.Info(ctx, "tool dispatched", "tool_name", call.Name)
package observability
