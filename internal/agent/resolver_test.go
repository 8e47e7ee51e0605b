package agent

import (
	"reflect"
	"testing"
)

func TestResolveReferences_ScalarPassThrough(t *testing.T) {
	board := NewBlackboard()
	resolved, warnings := ResolveReferences(42, board)
	if resolved != 42 || len(warnings) != 0 {
		t.Fatalf("got %v, %v", resolved, warnings)
	}
}

func TestResolveReferences_StringWithoutSigil(t *testing.T) {
	board := NewBlackboard()
	resolved, warnings := ResolveReferences("plain text", board)
	if resolved != "plain text" || len(warnings) != 0 {
		t.Fatalf("got %v, %v", resolved, warnings)
	}
}

func TestResolveReferences_ResolvesKnownKey(t *testing.T) {
	board := NewBlackboard()
	board.Store("result_1_search_issues", []any{"issue-1"})

	resolved, warnings := ResolveReferences("$result_1_search_issues", board)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !reflect.DeepEqual(resolved, []any{"issue-1"}) {
		t.Fatalf("got %v", resolved)
	}
}

func TestResolveReferences_MissingKeyYieldsNullAndWarning(t *testing.T) {
	board := NewBlackboard()
	resolved, warnings := ResolveReferences("$nonexistent", board)
	if resolved != nil {
		t.Fatalf("expected nil, got %v", resolved)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestResolveReferences_RecursesThroughNestedStructures(t *testing.T) {
	board := NewBlackboard()
	board.Store("a", "resolved-a")

	input := map[string]any{
		"fieldConditions": map[string]any{"status": "$a"},
		"issues":          []any{"$a", "literal"},
	}
	resolved, warnings := ResolveReferences(input, board)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	m := resolved.(map[string]any)
	if m["fieldConditions"].(map[string]any)["status"] != "resolved-a" {
		t.Fatalf("nested object not resolved: %v", m)
	}
	arr := m["issues"].([]any)
	if arr[0] != "resolved-a" || arr[1] != "literal" {
		t.Fatalf("array not resolved correctly: %v", arr)
	}
}

func TestResolveReferences_Idempotent(t *testing.T) {
	board := NewBlackboard()
	board.Store("a", 7)

	input := map[string]any{"x": "$a", "y": "literal"}
	once, _ := ResolveReferences(input, board)
	twice, _ := ResolveReferences(once, board)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("resolution not idempotent: %v != %v", once, twice)
	}
}
