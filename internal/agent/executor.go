package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// Engine is the Execution Engine: it runs one tool invocation end to
// end — parse args, resolve references, validate, dispatch, summarize,
// record history.
type Engine struct {
	Registry        *ToolRegistry
	SummaryMaxChars int
	NonCacheable    map[string]bool

	schemaCache sync.Map // schema JSON string -> *jsonschema.Schema
}

// NewEngine builds an Engine. nonCacheableTools lists tool names whose
// successful results are never auto-written to the Blackboard.
func NewEngine(registry *ToolRegistry, summaryMaxChars int, nonCacheableTools []string) *Engine {
	nc := make(map[string]bool, len(nonCacheableTools))
	for _, name := range nonCacheableTools {
		nc[name] = true
	}
	if summaryMaxChars <= 0 {
		summaryMaxChars = DefaultSummaryMaxChars
	}
	return &Engine{Registry: registry, SummaryMaxChars: summaryMaxChars, NonCacheable: nc}
}

// ExecuteCall runs call against board, recording an append-only history
// entry and (on success) a Blackboard write. It never panics outward —
// every failure mode becomes a CallError of the appropriate ErrorKind and a
// recorded HistoryRecord, so the Driver can feed the failure back to the
// LLM instead of aborting the session.
func (e *Engine) ExecuteCall(ctx context.Context, board *Blackboard, iteration int, call models.ToolCall) (value any, summary string, record models.HistoryRecord, callErr *CallError) {
	started := time.Now()
	record = models.HistoryRecord{CallID: call.ID, ToolName: call.Name, StartedAt: started}

	finish := func(success bool, v any, errKind ErrorKind, cause error, warnings []string) (any, string, models.HistoryRecord, *CallError) {
		record.FinishedAt = time.Now()
		record.Success = success
		record.Warnings = warnings
		if success {
			s := Summarize(v, e.SummaryMaxChars)
			record.Summary = s
			return v, s, record, nil
		}
		ce := newCallError(errKind, call.Name, call.ID, cause)
		record.Error = ce.Error()
		errSummary := Summarize(map[string]any{"error": ce.Error(), "kind": string(errKind)}, e.SummaryMaxChars)
		return nil, errSummary, record, ce
	}

	var parsed any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &parsed); err != nil {
			return finish(false, nil, ArgParseError, fmt.Errorf("parse arguments: %w", err), nil)
		}
	}
	record.ArgsSnapshot = parsed

	// Look up the tool first so an UnknownTool error short-circuits before
	// reference resolution: no point resolving arguments for a tool we can
	// never run.
	tool, ok := e.Registry.Get(call.Name)
	if !ok {
		return finish(false, nil, UnknownTool, fmt.Errorf("tool not found: %s", call.Name), nil)
	}

	resolved, warnings := ResolveReferences(parsed, board)

	// Validate resolved arguments against the tool's declared schema before
	// dispatch.
	if err := e.validate(tool, resolved); err != nil {
		return finish(false, nil, SchemaViolation, err, warnings)
	}

	resolvedJSON, err := json.Marshal(resolved)
	if err != nil {
		return finish(false, nil, ArgParseError, fmt.Errorf("re-encode resolved arguments: %w", err), warnings)
	}

	// Dispatch. The Session's Blackboard travels on the context so
	// whole-board tools (get_cached_issues, get_issue) can reach it without
	// the read-only, process-global registry binding to one Session's board.
	result, err := tool.Execute(WithBlackboard(ctx, board), resolvedJSON)
	if err != nil {
		return finish(false, nil, ToolExecutionError, fmt.Errorf("%s: %w", call.Name, err), warnings)
	}
	if result != nil && result.IsError {
		return finish(false, nil, ToolExecutionError, fmt.Errorf("%s: %s", call.Name, result.ErrorMessage), warnings)
	}

	var out any
	if result != nil {
		out = result.Value
	}

	// Auto-blackboard unless the tool is marked non-cacheable.
	if !tool.NonCacheable() && !e.NonCacheable[call.Name] {
		board.Store(AutoKey(iteration, call.Name), out)
	}

	return finish(true, out, "", nil, warnings)
}

func (e *Engine) validate(tool Tool, resolved any) error {
	schemaJSON := tool.Schema()
	if len(schemaJSON) == 0 {
		return nil
	}
	compiled, err := e.compileSchema(tool.Name(), schemaJSON)
	if err != nil {
		// A tool that ships an uncompilable schema is a programming error,
		// not a caller mistake; don't block dispatch on it.
		return nil
	}
	return compiled.Validate(resolved)
}

func (e *Engine) compileSchema(toolName string, schemaJSON json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaJSON)
	if cached, ok := e.schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", key)
	if err != nil {
		return nil, err
	}
	e.schemaCache.Store(key, compiled)
	return compiled, nil
}
