package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/skylarklabs/reportloom/pkg/models"
)

func newTestEngine(tools ...Tool) (*Engine, *ToolRegistry) {
	registry := NewToolRegistry()
	for _, t := range tools {
		registry.Register(t)
	}
	return NewEngine(registry, DefaultSummaryMaxChars, nil), registry
}

func TestExecuteCall_Success(t *testing.T) {
	echo := &funcTool{
		name: "echo",
		exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
			var m map[string]any
			json.Unmarshal(args, &m)
			return valueResult(m["text"])
		},
	}
	engine, _ := newTestEngine(echo)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{"text":"hello"}`)}
	value, summary, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if value != "hello" {
		t.Fatalf("expected value 'hello', got %v", value)
	}
	if !record.Success {
		t.Fatalf("expected history record to report success")
	}
	if summary == "" {
		t.Fatalf("expected non-empty summary")
	}

	got, ok := board.Get(AutoKey(1, "echo"))
	if !ok || got != "hello" {
		t.Fatalf("expected auto-blackboard write, got %v, ok=%v", got, ok)
	}
}

func TestExecuteCall_ArgParseError(t *testing.T) {
	echo := &funcTool{name: "echo", exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		return valueResult("unreached")
	}}
	engine, _ := newTestEngine(echo)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{not json`)}
	_, _, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr == nil {
		t.Fatal("expected a CallError")
	}
	if callErr.Kind != ArgParseError {
		t.Fatalf("expected ArgParseError, got %v", callErr.Kind)
	}
	if record.Success {
		t.Fatal("expected history record to report failure")
	}
	if record.Error == "" {
		t.Fatal("expected history record to carry the error")
	}
}

func TestExecuteCall_UnknownTool(t *testing.T) {
	engine, _ := newTestEngine()
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "does_not_exist", Arguments: json.RawMessage(`{}`)}
	_, _, _, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr == nil || callErr.Kind != UnknownTool {
		t.Fatalf("expected UnknownTool, got %v", callErr)
	}
}

func TestExecuteCall_SchemaViolation(t *testing.T) {
	strictTool := &funcTool{
		name:   "strict",
		schema: json.RawMessage(`{"type":"object","properties":{"count":{"type":"integer"}},"required":["count"]}`),
		exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
			return valueResult("unreached")
		},
	}
	engine, _ := newTestEngine(strictTool)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "strict", Arguments: json.RawMessage(`{"count":"not-an-integer"}`)}
	_, _, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr == nil || callErr.Kind != SchemaViolation {
		t.Fatalf("expected SchemaViolation, got %v", callErr)
	}
	if record.Success {
		t.Fatal("expected failed history record on schema violation")
	}
}

func TestExecuteCall_ToolExecutionError(t *testing.T) {
	boom := &funcTool{name: "boom", exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		return nil, errors.New("external service unavailable")
	}}
	engine, _ := newTestEngine(boom)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "boom", Arguments: json.RawMessage(`{}`)}
	_, summary, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr == nil || callErr.Kind != ToolExecutionError {
		t.Fatalf("expected ToolExecutionError, got %v", callErr)
	}
	if record.Success {
		t.Fatal("expected failed history record")
	}
	if summary == "" {
		t.Fatal("expected a non-empty error summary fed back to the LLM")
	}
}

func TestExecuteCall_ReferenceResolutionFeedsArguments(t *testing.T) {
	var gotArgs map[string]any
	consume := &funcTool{name: "consume", exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		json.Unmarshal(args, &gotArgs)
		return valueResult(nil)
	}}
	engine, _ := newTestEngine(consume)
	board := NewBlackboard()
	board.Store("result_1_search_issues", []any{"issue-1", "issue-2"})

	call := models.ToolCall{ID: "c1", Name: "consume", Arguments: json.RawMessage(`{"data":"$result_1_search_issues"}`)}
	_, _, _, callErr := engine.ExecuteCall(context.Background(), board, 2, call)

	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	list, ok := gotArgs["data"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected resolved reference to deliver the blackboard list, got %#v", gotArgs["data"])
	}
}

func TestExecuteCall_UnresolvedReferenceIsNonFatal(t *testing.T) {
	var gotArgs map[string]any
	consume := &funcTool{name: "consume", exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		json.Unmarshal(args, &gotArgs)
		return valueResult("ok")
	}}
	engine, _ := newTestEngine(consume)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "consume", Arguments: json.RawMessage(`{"data":"$nonexistent"}`)}
	_, _, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr != nil {
		t.Fatalf("unresolved reference must not abort the call, got %v", callErr)
	}
	if !record.Success {
		t.Fatal("expected success despite the unresolved reference")
	}
	if len(record.Warnings) == 0 {
		t.Fatal("expected an unresolved-reference warning on the history record")
	}
	if gotArgs["data"] != nil {
		t.Fatalf("expected the executor to receive null for the unresolved key, got %v", gotArgs["data"])
	}
}

func TestExecuteCall_NonCacheableToolSkipsBlackboardWrite(t *testing.T) {
	noisy := &funcTool{name: "noisy", nonCacheable: true, exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		return valueResult("big-payload")
	}}
	engine, _ := newTestEngine(noisy)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "noisy", Arguments: json.RawMessage(`{}`)}
	_, _, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if !record.Success {
		t.Fatal("expected success")
	}
	if _, ok := board.Get(AutoKey(1, "noisy")); ok {
		t.Fatal("expected no auto-blackboard write for a NonCacheable tool")
	}
}

func TestExecuteCall_ConfiguredNonCacheableSkipsBlackboardWrite(t *testing.T) {
	plain := &funcTool{name: "plain", exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		return valueResult("value")
	}}
	registry := NewToolRegistry()
	registry.Register(plain)
	engine := NewEngine(registry, DefaultSummaryMaxChars, []string{"plain"})
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "plain", Arguments: json.RawMessage(`{}`)}
	_, _, _, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if _, ok := board.Get(AutoKey(1, "plain")); ok {
		t.Fatal("expected no auto-blackboard write when configured NonCacheableTools names this tool")
	}
}

func TestExecuteCall_ToolReportedError(t *testing.T) {
	failing := &funcTool{name: "failing", exec: func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		return &ToolResult{IsError: true, ErrorMessage: "bad state"}, nil
	}}
	engine, _ := newTestEngine(failing)
	board := NewBlackboard()

	call := models.ToolCall{ID: "c1", Name: "failing", Arguments: json.RawMessage(`{}`)}
	_, _, record, callErr := engine.ExecuteCall(context.Background(), board, 1, call)

	if callErr == nil || callErr.Kind != ToolExecutionError {
		t.Fatalf("expected ToolExecutionError for an IsError ToolResult, got %v", callErr)
	}
	if record.Success {
		t.Fatal("expected failed history record")
	}
}
