package agent

import (
	"sync"
)

// MaxToolNameLength bounds how long a registered tool's name may be —
// primarily a guard against a misbehaving LLM echoing back a corrupted,
// oversized name.
const MaxToolNameLength = 256

// ToolRegistry is a read-only-after-construction catalog of Tool
// Descriptors indexed by name. Registration itself is
// mutex-protected so callers may still build the registry incrementally
// before handing it to the Agent Loop Driver.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool name in no particular order.
func (r *ToolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Schemas returns the function-calling descriptors for every registered
// tool, suitable for a CompletionRequest.Tools field.
func (r *ToolRegistry) Schemas() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return out
}

// ValidateName reports whether name is acceptable for registry lookup at
// all (length bound only — existence is checked by Get).
func ValidateName(name string) bool {
	return len(name) > 0 && len(name) <= MaxToolNameLength
}
