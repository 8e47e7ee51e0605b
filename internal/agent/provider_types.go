package agent

import (
	"context"
	"encoding/json"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// LLMProvider is the interface the Rate Controller drives. A single
// completion answers one turn of the agent loop — the core consumes one
// full response per turn rather than a token stream, so Complete returns
// synchronously instead of over a channel. There is no ResponseChunk
// machinery to forward partial text to a live chat surface — not a concern
// here.
type LLMProvider interface {
	// Complete sends the conversation so far plus the tool catalog and
	// returns the provider's next message.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name, for logging and metrics labels.
	Name() string
}

// CompletionRequest mirrors the LLM function-calling protocol: messages
// with roles {system,user,assistant,tool}, a tool catalog, a tool_choice
// directive (always "auto" here), and a temperature.
type CompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []models.Message `json:"messages"`
	Tools       []ToolDescriptor `json:"tools,omitempty"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
}

// CompletionResponse is the provider's answer to one turn: optional text
// content and optional tool invocations, which the protocol allows to be
// present simultaneously.
type CompletionResponse struct {
	Content   string           `json:"content,omitempty"`
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// ToolDescriptor is the function-calling-dialect shape exposed to the LLM
// provider for one registered Tool: {type:"function", function:{name,
// description, parameters}}.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Tool is the interface every registered operation in the Tool Registry
// implements.
type Tool interface {
	// Name returns the tool name used in function-calling dispatch. Must be
	// a valid function name (alphanumeric, underscores).
	Name() string

	// Description is shown to the LLM to help it decide when to call this tool.
	Description() string

	// Schema returns the JSON-schema parameter signature.
	Schema() json.RawMessage

	// Execute runs the tool against resolved, schema-validated arguments.
	Execute(ctx context.Context, args json.RawMessage) (*ToolResult, error)

	// NonCacheable reports whether a successful result should be excluded
	// from the automatic Blackboard write (the non_cacheable_tools
	// config option).
	NonCacheable() bool

	// Parallelizable reports whether this tool is safe to run concurrently
	// with other invocations in the same assistant turn. Most tools here
	// are pure functions over
	// in-memory data and return true; search_issues, which hits an external
	// service, returns false out of caution even though it has no
	// observable side effect either.
	Parallelizable() bool
}

// ToolResult is what a Tool.Execute call returns on success.
type ToolResult struct {
	Value   any  `json:"value"`
	IsError bool `json:"is_error,omitempty"`
	// ErrorMessage is set when IsError is true.
	ErrorMessage string `json:"error_message,omitempty"`
}
