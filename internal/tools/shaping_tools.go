package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skylarklabs/reportloom/internal/agent"
)

// FindIssueByFieldTool scans a list of issues for the first one whose field
// matches a value, returning null when nothing matches.
type FindIssueByFieldTool struct{}

func NewFindIssueByFieldTool() *FindIssueByFieldTool { return &FindIssueByFieldTool{} }

func (t *FindIssueByFieldTool) Name() string        { return "find_issue_by_field" }
func (t *FindIssueByFieldTool) NonCacheable() bool   { return false }
func (t *FindIssueByFieldTool) Parallelizable() bool { return true }

func (t *FindIssueByFieldTool) Description() string {
	return "Find the first issue in a list whose field equals the given value, or null if none match."
}

func (t *FindIssueByFieldTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"issues": {"type": "array", "items": {"type": "object"}},
			"fieldName": {"type": "string"},
			"fieldValue": {}
		},
		"required": ["issues", "fieldName", "fieldValue"]
	}`)
}

func (t *FindIssueByFieldTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Issues     []map[string]any `json:"issues"`
		FieldName  string           `json:"fieldName"`
		FieldValue any              `json:"fieldValue"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	for _, issue := range input.Issues {
		if fieldEquals(issue[input.FieldName], input.FieldValue) {
			return &agent.ToolResult{Value: issue}, nil
		}
	}
	return &agent.ToolResult{Value: nil}, nil
}

// FilterIssuesTool keeps only the issues whose fields match every condition
// in fieldConditions.
type FilterIssuesTool struct{}

func NewFilterIssuesTool() *FilterIssuesTool { return &FilterIssuesTool{} }

func (t *FilterIssuesTool) Name() string        { return "filter_issues" }
func (t *FilterIssuesTool) NonCacheable() bool   { return false }
func (t *FilterIssuesTool) Parallelizable() bool { return true }

func (t *FilterIssuesTool) Description() string {
	return "Filter a list of issues, keeping only those matching every field condition given."
}

func (t *FilterIssuesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"issues": {"type": "array", "items": {"type": "object"}},
			"fieldConditions": {"type": "object", "description": "Map of fieldName to the required value"}
		},
		"required": ["issues", "fieldConditions"]
	}`)
}

func (t *FilterIssuesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Issues          []map[string]any `json:"issues"`
		FieldConditions map[string]any   `json:"fieldConditions"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}

	matched := make([]map[string]any, 0, len(input.Issues))
	for _, issue := range input.Issues {
		if matchesAllConditions(issue, input.FieldConditions) {
			matched = append(matched, issue)
		}
	}
	return &agent.ToolResult{Value: matched}, nil
}

func matchesAllConditions(issue map[string]any, conditions map[string]any) bool {
	for field, want := range conditions {
		if !fieldEquals(issue[field], want) {
			return false
		}
	}
	return true
}

func fieldEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	encodedA, errA := json.Marshal(a)
	encodedB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return string(encodedA) == string(encodedB)
}

// GroupByFieldTool buckets issues by the string value of a field.
type GroupByFieldTool struct{}

func NewGroupByFieldTool() *GroupByFieldTool { return &GroupByFieldTool{} }

func (t *GroupByFieldTool) Name() string        { return "group_by_field" }
func (t *GroupByFieldTool) NonCacheable() bool   { return false }
func (t *GroupByFieldTool) Parallelizable() bool { return true }

func (t *GroupByFieldTool) Description() string {
	return "Group a list of issues into buckets keyed by the string value of a field."
}

func (t *GroupByFieldTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"issues": {"type": "array", "items": {"type": "object"}},
			"fieldName": {"type": "string"}
		},
		"required": ["issues", "fieldName"]
	}`)
}

func (t *GroupByFieldTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Issues    []map[string]any `json:"issues"`
		FieldName string           `json:"fieldName"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}

	groups := make(map[string][]map[string]any)
	for _, issue := range input.Issues {
		key := fieldKey(issue[input.FieldName])
		groups[key] = append(groups[key], issue)
	}
	return &agent.ToolResult{Value: groups}, nil
}

// CountByFieldTool tallies the number of issues per distinct field value.
type CountByFieldTool struct{}

func NewCountByFieldTool() *CountByFieldTool { return &CountByFieldTool{} }

func (t *CountByFieldTool) Name() string        { return "count_by_field" }
func (t *CountByFieldTool) NonCacheable() bool   { return false }
func (t *CountByFieldTool) Parallelizable() bool { return true }

func (t *CountByFieldTool) Description() string {
	return "Count how many issues have each distinct value of a field."
}

func (t *CountByFieldTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"issues": {"type": "array", "items": {"type": "object"}},
			"fieldName": {"type": "string"}
		},
		"required": ["issues", "fieldName"]
	}`)
}

func (t *CountByFieldTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Issues    []map[string]any `json:"issues"`
		FieldName string           `json:"fieldName"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}

	counts := make(map[string]int)
	for _, issue := range input.Issues {
		counts[fieldKey(issue[input.FieldName])]++
	}
	return &agent.ToolResult{Value: counts}, nil
}

func fieldKey(v any) string {
	if v == nil {
		return "(none)"
	}
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}
