package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/skylarklabs/reportloom/internal/agent"
)

// FormatAsTableTool renders a list of record-like values as an HTML table
// restricted to the requested columns. Always emits HTML, matching the
// HTML-fragment report artifact the rest of the system produces.
type FormatAsTableTool struct{}

func NewFormatAsTableTool() *FormatAsTableTool { return &FormatAsTableTool{} }

func (t *FormatAsTableTool) Name() string        { return "format_as_table" }
func (t *FormatAsTableTool) NonCacheable() bool   { return false }
func (t *FormatAsTableTool) Parallelizable() bool { return true }

func (t *FormatAsTableTool) Description() string {
	return "Render a list of records as an HTML table restricted to the given columns."
}

func (t *FormatAsTableTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"data": {"type": "array", "items": {"type": "object"}},
			"columns": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["data", "columns"]
	}`)
}

func (t *FormatAsTableTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Data    []map[string]any `json:"data"`
		Columns []string         `json:"columns"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}

	var b strings.Builder
	b.WriteString("<table>\n  <tr>")
	for _, col := range input.Columns {
		b.WriteString("<th>")
		b.WriteString(htmlEscape(col))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n")
	for _, row := range input.Data {
		b.WriteString("  <tr>")
		for _, col := range input.Columns {
			b.WriteString("<td>")
			b.WriteString(htmlEscape(fmt.Sprint(row[col])))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>")
	return &agent.ToolResult{Value: b.String()}, nil
}

// FormatAsListTool renders an arbitrary JSON-shaped value as an HTML
// unordered list. Scalars are
// stringified, maps are rendered key: value, and lists nest recursively.
type FormatAsListTool struct{}

func NewFormatAsListTool() *FormatAsListTool { return &FormatAsListTool{} }

func (t *FormatAsListTool) Name() string        { return "format_as_list" }
func (t *FormatAsListTool) NonCacheable() bool   { return false }
func (t *FormatAsListTool) Parallelizable() bool { return true }

func (t *FormatAsListTool) Description() string {
	return "Render an arbitrary value (list, map, or scalar) as an HTML unordered list."
}

func (t *FormatAsListTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"data": {}},
		"required": ["data"]
	}`)
}

func (t *FormatAsListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Data any `json:"data"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	return &agent.ToolResult{Value: renderList(input.Data)}, nil
}

func renderList(v any) string {
	switch val := v.(type) {
	case []any:
		var b strings.Builder
		b.WriteString("<ul>")
		for _, item := range val {
			b.WriteString("<li>")
			b.WriteString(renderListItem(item))
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
		return b.String()
	case map[string]any:
		return renderMapAsList(val)
	default:
		return "<ul><li>" + htmlEscape(fmt.Sprint(val)) + "</li></ul>"
	}
}

func renderListItem(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return renderMapInline(val)
	case []any:
		return renderList(val)
	default:
		return htmlEscape(fmt.Sprint(val))
	}
}

func renderMapAsList(m map[string]any) string {
	keys := sortedKeys(m)
	var b strings.Builder
	b.WriteString("<ul>")
	for _, k := range keys {
		b.WriteString("<li>")
		b.WriteString(htmlEscape(k))
		b.WriteString(": ")
		b.WriteString(renderListItem(m[k]))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func renderMapInline(m map[string]any) string {
	keys := sortedKeys(m)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, htmlEscape(k)+": "+htmlEscape(fmt.Sprint(m[k])))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
