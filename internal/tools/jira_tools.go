// Package tools implements the Tool Registry's concrete operations:
// Jira-backed issue querying, in-memory data shaping, text/date helpers, and
// presentation formatters. Each tool follows the same shape: a
// thin struct wrapping a client/dependency, a fixed JSON schema, and an
// Execute method that unmarshals typed params and returns an
// agent.ToolResult.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skylarklabs/reportloom/internal/agent"
	"github.com/skylarklabs/reportloom/internal/jira"
	"github.com/skylarklabs/reportloom/pkg/models"
)

// SearchIssuesTool runs a JQL query against Jira. It touches an external
// service so it reports Parallelizable() == false even though it has no
// observable side effect.
type SearchIssuesTool struct {
	client jira.Searcher
}

// NewSearchIssuesTool builds a SearchIssuesTool.
func NewSearchIssuesTool(client jira.Searcher) *SearchIssuesTool {
	return &SearchIssuesTool{client: client}
}

func (t *SearchIssuesTool) Name() string        { return "search_issues" }
func (t *SearchIssuesTool) NonCacheable() bool   { return false }
func (t *SearchIssuesTool) Parallelizable() bool { return false }

func (t *SearchIssuesTool) Description() string {
	return "Search Jira issues with a JQL query. Returns a list of matching issues."
}

func (t *SearchIssuesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"jql": {
				"type": "string",
				"description": "A Jira Query Language expression, e.g. \"project = ABC AND status = Open\""
			},
			"fields": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Optional list of Jira fields to request"
			},
			"maxResults": {
				"type": "integer",
				"description": "Maximum number of issues to return (default 50)"
			}
		},
		"required": ["jql"]
	}`)
}

func (t *SearchIssuesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		JQL        string   `json:"jql"`
		Fields     []string `json:"fields"`
		MaxResults int      `json:"maxResults"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	if input.JQL == "" {
		return &agent.ToolResult{IsError: true, ErrorMessage: "jql is required"}, nil
	}

	issues, err := t.client.Search(ctx, input.JQL, input.Fields, input.MaxResults)
	if err != nil {
		return &agent.ToolResult{IsError: true, ErrorMessage: fmt.Sprintf("search issues: %v", err)}, nil
	}
	return &agent.ToolResult{Value: issues}, nil
}

// GetCachedIssuesTool returns every issue already fetched in the current
// session by scanning the Blackboard for prior search_issues / get_issue
// results. The Blackboard it scans is the calling Session's, reached
// through the context the Execution Engine attaches at dispatch time
// (agent.WithBlackboard) rather than a field bound at registry-construction
// time — the Tool Registry is a single process-global, read-only catalog
// shared by every concurrent Session, so it cannot hold a reference to any
// one Session's board.
type GetCachedIssuesTool struct{}

// NewGetCachedIssuesTool builds a GetCachedIssuesTool.
func NewGetCachedIssuesTool() *GetCachedIssuesTool {
	return &GetCachedIssuesTool{}
}

func (t *GetCachedIssuesTool) Name() string        { return "get_cached_issues" }
func (t *GetCachedIssuesTool) NonCacheable() bool   { return true }
func (t *GetCachedIssuesTool) Parallelizable() bool { return true }

func (t *GetCachedIssuesTool) Description() string {
	return "Return every issue already fetched earlier in this session, deduplicated by key."
}

func (t *GetCachedIssuesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *GetCachedIssuesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	board, ok := agent.BlackboardFromContext(ctx)
	if !ok {
		return &agent.ToolResult{Value: []models.Issue{}}, nil
	}
	seen := make(map[string]bool)
	var issues []models.Issue
	for _, raw := range board.All() {
		for _, issue := range extractIssues(raw) {
			if issue.Key == "" || seen[issue.Key] {
				continue
			}
			seen[issue.Key] = true
			issues = append(issues, issue)
		}
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return &agent.ToolResult{Value: issues}, nil
}

// extractIssues coerces a Blackboard value (typically []models.Issue from a
// direct tool result, or []any from a JSON round-trip) into a slice of Issue.
func extractIssues(v any) []models.Issue {
	switch val := v.(type) {
	case []models.Issue:
		return val
	case []any:
		out := make([]models.Issue, 0, len(val))
		for _, item := range val {
			if issue, ok := coerceIssue(item); ok {
				out = append(out, issue)
			}
		}
		return out
	default:
		if issue, ok := coerceIssue(v); ok {
			return []models.Issue{issue}
		}
		return nil
	}
}

func coerceIssue(v any) (models.Issue, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		if issue, ok := v.(models.Issue); ok {
			return issue, true
		}
		return models.Issue{}, false
	}
	key, ok := m["key"].(string)
	if !ok || key == "" {
		return models.Issue{}, false
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return models.Issue{}, false
	}
	var issue models.Issue
	if err := json.Unmarshal(encoded, &issue); err != nil {
		return models.Issue{}, false
	}
	return issue, true
}

// GetIssueTool retrieves a single issue by key from the session's already
// fetched issues: a convenience wrapper over find_issue_by_field for the
// common lookup-by-key case. Like GetCachedIssuesTool, it reaches the
// calling Session's Blackboard through the context rather than a
// constructor-bound field.
type GetIssueTool struct{}

// NewGetIssueTool builds a GetIssueTool.
func NewGetIssueTool() *GetIssueTool {
	return &GetIssueTool{}
}

func (t *GetIssueTool) Name() string        { return "get_issue" }
func (t *GetIssueTool) NonCacheable() bool   { return true }
func (t *GetIssueTool) Parallelizable() bool { return true }

func (t *GetIssueTool) Description() string {
	return "Look up a single already-fetched issue by its key (e.g. ABC-123)."
}

func (t *GetIssueTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The issue key, e.g. ABC-123"}
		},
		"required": ["key"]
	}`)
}

func (t *GetIssueTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	board, ok := agent.BlackboardFromContext(ctx)
	if !ok {
		return &agent.ToolResult{Value: nil}, nil
	}
	for _, raw := range board.All() {
		for _, issue := range extractIssues(raw) {
			if issue.Key == input.Key {
				return &agent.ToolResult{Value: issue}, nil
			}
		}
	}
	return &agent.ToolResult{Value: nil}, nil
}
