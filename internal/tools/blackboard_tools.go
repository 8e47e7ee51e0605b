package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skylarklabs/reportloom/internal/agent"
)

// StoreResultTool writes a value into the session Blackboard under an
// explicit name, so later tool calls can reference it as "$name" instead of
// the auto-generated result_{iteration}_{tool} key. Like the other
// Blackboard-backed tools it reaches the calling Session's board through the
// context the Execution Engine attaches at dispatch time.
type StoreResultTool struct{}

// NewStoreResultTool builds a StoreResultTool.
func NewStoreResultTool() *StoreResultTool {
	return &StoreResultTool{}
}

func (t *StoreResultTool) Name() string        { return "store_result" }
func (t *StoreResultTool) NonCacheable() bool   { return true }
func (t *StoreResultTool) Parallelizable() bool { return false }

func (t *StoreResultTool) Description() string {
	return "Store a value under a chosen name so later tool calls can reference it as $name."
}

func (t *StoreResultTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The key to store under; reference it later as $name"},
			"value": {"description": "Any JSON value to store"}
		},
		"required": ["name", "value"]
	}`)
}

func (t *StoreResultTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	if input.Name == "" {
		return &agent.ToolResult{IsError: true, ErrorMessage: "name is required"}, nil
	}
	board, ok := agent.BlackboardFromContext(ctx)
	if !ok {
		return &agent.ToolResult{IsError: true, ErrorMessage: "no session blackboard available"}, nil
	}

	var value any
	if err := json.Unmarshal(input.Value, &value); err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	board.Store(input.Name, value)
	return &agent.ToolResult{Value: fmt.Sprintf("stored under %q", input.Name)}, nil
}
