package models

import "time"

// HistoryRecord is one append-only entry in a Session's Execution History.
// Once written it is never mutated.
type HistoryRecord struct {
	CallID       string          `json:"call_id"`
	ToolName     string          `json:"tool_name"`
	ArgsSnapshot any             `json:"args_snapshot"`
	Success      bool            `json:"success"`
	Summary      string          `json:"summary,omitempty"`
	Error        string          `json:"error,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// PromptExecution is the durable record written by a completed session and
// consumed later by the Placeholder Parser.
type PromptExecution struct {
	ID          string         `json:"id"`
	PromptID    int            `json:"prompt_id"`
	ExecutedAt  time.Time      `json:"executed_at"`
	Issues      []Issue        `json:"issues"`
	Artifact    string         `json:"artifact"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RequestContext is the structured context the caller supplies alongside a
// natural-language request: a date window and the identity of the
// requesting user. Serialized as a labeled JSON block and appended to the
// user message rather than flattened into prose.
type RequestContext struct {
	Period string         `json:"period,omitempty"`
	UserID string         `json:"user_id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// RunResult is returned by the Agent Loop Driver's Run operation.
type RunResult struct {
	Success   bool            `json:"success"`
	Artifact  string          `json:"artifact"`
	History   []HistoryRecord `json:"history"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
	ErrorKind string          `json:"error_kind,omitempty"`
}
