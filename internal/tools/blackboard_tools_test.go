package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/skylarklabs/reportloom/internal/agent"
)

func TestStoreResult(t *testing.T) {
	tool := NewStoreResultTool()
	board := agent.NewBlackboard()
	ctx := agent.WithBlackboard(context.Background(), board)

	params := json.RawMessage(`{"name":"october_issues","value":[{"key":"A-1"},{"key":"A-2"}]}`)
	result, err := tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ErrorMessage)
	}

	stored, ok := board.Get("october_issues")
	if !ok {
		t.Fatal("value was not stored")
	}
	items, ok := stored.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("stored = %#v", stored)
	}
}

func TestStoreResultScalarValue(t *testing.T) {
	tool := NewStoreResultTool()
	board := agent.NewBlackboard()
	ctx := agent.WithBlackboard(context.Background(), board)

	params := json.RawMessage(`{"name":"release","value":"2.14.1"}`)
	if _, err := tool.Execute(ctx, params); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	stored, _ := board.Get("release")
	if stored != "2.14.1" {
		t.Fatalf("stored = %#v", stored)
	}
}

func TestStoreResultMissingName(t *testing.T) {
	tool := NewStoreResultTool()
	ctx := agent.WithBlackboard(context.Background(), agent.NewBlackboard())
	result, err := tool.Execute(ctx, json.RawMessage(`{"name":"","value":1}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for empty name")
	}
}

func TestStoreResultNoBlackboard(t *testing.T) {
	tool := NewStoreResultTool()
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"name":"x","value":1}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result without a session blackboard")
	}
}
