package models

import "testing"

func TestMessageIsToolResultFor(t *testing.T) {
	m := Message{Role: RoleTool, ToolCallID: "call-1"}
	if !m.IsToolResultFor("call-1") {
		t.Fatal("expected match on call-1")
	}
	if m.IsToolResultFor("call-2") {
		t.Fatal("did not expect match on call-2")
	}
	if (Message{Role: RoleUser, ToolCallID: "call-1"}).IsToolResultFor("call-1") {
		t.Fatal("non-tool message must never match")
	}
}

func TestMessageInvocations(t *testing.T) {
	assistant := Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "search_issues"}}}
	if len(assistant.Invocations()) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(assistant.Invocations()))
	}

	user := Message{Role: RoleUser, ToolCalls: []ToolCall{{ID: "c1"}}}
	if invocations := user.Invocations(); invocations != nil {
		t.Fatalf("user messages must never report invocations, got %v", invocations)
	}
}
