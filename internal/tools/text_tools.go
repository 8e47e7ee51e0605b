package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/skylarklabs/reportloom/internal/agent"
)

var versionPattern = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.]+)?)\b`)

// ExtractVersionTool pulls the first semantic-version-looking token out of a
// string.
type ExtractVersionTool struct{}

func NewExtractVersionTool() *ExtractVersionTool { return &ExtractVersionTool{} }

func (t *ExtractVersionTool) Name() string        { return "extract_version" }
func (t *ExtractVersionTool) NonCacheable() bool   { return false }
func (t *ExtractVersionTool) Parallelizable() bool { return true }

func (t *ExtractVersionTool) Description() string {
	return "Extract the first version-looking substring (e.g. 2.14.1) from free text."
}

func (t *ExtractVersionTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"text": {"type": "string"}},
		"required": ["text"]
	}`)
}

func (t *ExtractVersionTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	match := versionPattern.FindStringSubmatch(input.Text)
	if match == nil {
		return &agent.ToolResult{Value: ""}, nil
	}
	return &agent.ToolResult{Value: match[1]}, nil
}

// knownLayouts maps a handful of named layouts to Go's reference-time
// format strings, plus Go layout strings pass straight through.
var knownLayouts = map[string]string{
	"date":     "2006-01-02",
	"datetime": "2006-01-02 15:04:05",
	"rfc3339":  time.RFC3339,
	"long":     "January 2, 2006",
	"short":    "Jan 2",
}

// FormatDateTool reformats an ISO-8601 timestamp into a named or Go-layout
// date format.
type FormatDateTool struct{}

func NewFormatDateTool() *FormatDateTool { return &FormatDateTool{} }

func (t *FormatDateTool) Name() string        { return "format_date" }
func (t *FormatDateTool) NonCacheable() bool   { return false }
func (t *FormatDateTool) Parallelizable() bool { return true }

func (t *FormatDateTool) Description() string {
	return "Reformat an ISO-8601 timestamp using a named layout (date, datetime, rfc3339, long, short) or a Go time layout string."
}

func (t *FormatDateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"iso": {"type": "string"},
			"layout": {"type": "string", "description": "One of date, datetime, rfc3339, long, short, or a Go reference-time layout"}
		},
		"required": ["iso"]
	}`)
}

func (t *FormatDateTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ISO    string `json:"iso"`
		Layout string `json:"layout"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339, input.ISO)
	if err != nil {
		parsed, err = time.Parse("2006-01-02T15:04:05.000-0700", input.ISO)
	}
	if err != nil {
		return &agent.ToolResult{IsError: true, ErrorMessage: fmt.Sprintf("could not parse %q as a timestamp", input.ISO)}, nil
	}

	layout := input.Layout
	if named, ok := knownLayouts[layout]; ok {
		layout = named
	} else if layout == "" {
		layout = knownLayouts["date"]
	}
	return &agent.ToolResult{Value: parsed.Format(layout)}, nil
}
