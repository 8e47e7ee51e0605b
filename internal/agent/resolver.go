package agent

import "strings"

// ResolveReferences rewrites every string leaf of v that begins with "$"
// into the Blackboard entry for the key following the sigil. Objects and
// arrays are traversed recursively; non-string scalars and strings that
// don't start with "$" pass through unchanged. A missing key resolves to
// nil and appends a warning describing the miss; resolution never fails
// outright.
func ResolveReferences(v any, board *Blackboard) (any, []string) {
	var warnings []string
	resolved := resolveValue(v, board, &warnings)
	return resolved, warnings
}

func resolveValue(v any, board *Blackboard, warnings *[]string) any {
	switch val := v.(type) {
	case string:
		return resolveString(val, board, warnings)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item, board, warnings)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, board, warnings)
		}
		return out
	default:
		return v
	}
}

func resolveString(s string, board *Blackboard, warnings *[]string) any {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	key := s[1:]
	value, ok := board.Get(key)
	if !ok {
		*warnings = append(*warnings, "unresolved reference: $"+key)
		return nil
	}
	return value
}
