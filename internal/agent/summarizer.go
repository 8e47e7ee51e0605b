package agent

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultSummaryMaxChars is the design default for Summarize's maxChars bound.
const DefaultSummaryMaxChars = 50000

const truncationSuffix = "... [truncated]"

// Summarize converts an arbitrary tool result into a bounded, information-
// dense JSON projection suitable as LLM feedback. It trades exhaustive
// detail for a head+tail sample plus per-field frequency tops so the LLM
// can reason about a whole dataset without drowning in raw rows.
func Summarize(value any, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultSummaryMaxChars
	}

	projected := project(normalize(value))
	encoded, err := json.Marshal(projected)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", value)))
	}

	s := string(encoded)
	if len(s) > maxChars {
		s = s[:maxChars] + truncationSuffix
	}
	return s
}

// normalize round-trips value through JSON so tool executors are free to
// return concrete Go types (models.Issue slices, map[string]int, ...)
// while project's type switch only has to reason about generic decoded JSON
// shapes (map[string]any, []any, float64, string, bool, nil) — the same
// shapes a result would have if it had come back over the wire from the
// tool instead of as an in-process Go value.
func normalize(value any) any {
	if value == nil {
		return nil
	}
	switch value.(type) {
	case map[string]any, []any, string, float64, bool, nil:
		return value
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return value
	}
	return decoded
}

func project(value any) any {
	if value == nil {
		return map[string]any{"status": "no_result"}
	}

	list, isList := asList(value)
	if !isList {
		return value
	}

	n := len(list)
	out := map[string]any{
		"type":  "list",
		"count": n,
	}

	if n <= 50 {
		out["items"] = list
	} else {
		sample := make([]any, 0, 50)
		sample = append(sample, list[:30]...)
		sample = append(sample, list[n-20:]...)
		out["items"] = sample
		out["truncated"] = true
		out["sampling"] = "first 30 + last 20"
	}

	if stats := fieldStatistics(list); stats != nil {
		out["field_statistics"] = stats
	}

	return out
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// fieldStatistics computes, for up to the first 10 keys of the first
// element (when items are objects), the total/unique/top-5 value counts
// across all items.
func fieldStatistics(list []any) map[string]any {
	if len(list) == 0 {
		return nil
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return nil
	}

	fields := make([]string, 0, len(first))
	for k := range first {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	if len(fields) > 10 {
		fields = fields[:10]
	}

	stats := make(map[string]any, len(fields))
	for _, field := range fields {
		counts := make(map[string]int)
		total := 0
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			v, present := obj[field]
			if !present {
				continue
			}
			total++
			counts[fmt.Sprintf("%v", v)]++
		}

		type valueCount struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		}
		top := make([]valueCount, 0, len(counts))
		for v, c := range counts {
			top = append(top, valueCount{Value: v, Count: c})
		}
		sort.Slice(top, func(i, j int) bool {
			if top[i].Count != top[j].Count {
				return top[i].Count > top[j].Count
			}
			return top[i].Value < top[j].Value
		})
		if len(top) > 5 {
			top = top[:5]
		}

		stats[field] = map[string]any{
			"total":      total,
			"unique":     len(counts),
			"top_values": top,
		}
	}
	return stats
}
