package providers

import (
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skylarklabs/reportloom/internal/agent"
	"github.com/skylarklabs/reportloom/pkg/models"
)

func newTestOpenAIProvider(t *testing.T) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p
}

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestOpenAIConvertMessages(t *testing.T) {
	p := newTestOpenAIProvider(t)
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "be terse"},
		{Role: models.RoleUser, Content: "summarize October"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			{ID: "call_1", Name: "search_issues", Arguments: json.RawMessage(`{"jql":"project = X"}`)},
		}},
		{Role: models.RoleTool, ToolCallID: "call_1", Content: `{"count":0}`},
	}

	converted := p.convertMessages(messages)
	if len(converted) != 4 {
		t.Fatalf("len(converted) = %d, want 4", len(converted))
	}
	if converted[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message role = %q", converted[0].Role)
	}
	if converted[2].ToolCalls[0].Function.Name != "search_issues" {
		t.Fatalf("assistant tool call = %+v", converted[2].ToolCalls)
	}
	if converted[3].ToolCallID != "call_1" {
		t.Fatalf("tool-result call id = %q", converted[3].ToolCallID)
	}
}

func TestOpenAIConvertTools(t *testing.T) {
	p := newTestOpenAIProvider(t)
	tools := []agent.ToolDescriptor{{
		Name:        "group_by_field",
		Description: "group issues by a field",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"fieldName":{"type":"string"}}}`),
	}}

	converted := p.convertTools(tools)
	if len(converted) != 1 || converted[0].Function.Name != "group_by_field" {
		t.Fatalf("converted = %+v", converted)
	}
}

func TestOpenAIConvertToolsFallsBackOnBadSchema(t *testing.T) {
	p := newTestOpenAIProvider(t)
	tools := []agent.ToolDescriptor{{Name: "broken", Parameters: json.RawMessage(`not json`)}}
	converted := p.convertTools(tools)
	if len(converted) != 1 {
		t.Fatalf("expected a tool entry even with malformed schema, got %+v", converted)
	}
}

func TestOpenAIToResponse(t *testing.T) {
	p := newTestOpenAIProvider(t)
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Content: "done",
				ToolCalls: []openai.ToolCall{{
					ID:       "call_9",
					Function: openai.FunctionCall{Name: "format_as_list", Arguments: `{"data":[]}`},
				}},
			},
		}},
		Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5},
	}

	out := p.toResponse(resp)
	if out.Content != "done" {
		t.Fatalf("content = %q", out.Content)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "format_as_list" {
		t.Fatalf("tool calls = %+v", out.ToolCalls)
	}
	if out.InputTokens != 10 || out.OutputTokens != 5 {
		t.Fatalf("token accounting = %+v", out)
	}
}
