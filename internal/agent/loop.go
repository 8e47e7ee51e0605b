package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skylarklabs/reportloom/internal/ratelimit"
	"github.com/skylarklabs/reportloom/pkg/models"
)

// DefaultSystemPrompt is the fixed instruction text the Agent Loop Driver
// opens every Session with: policy, output format constraints, and tool-use
// etiquette.
const DefaultSystemPrompt = `You generate a single finished HTML fragment report from issue-tracker data.
Use the available tools to query, filter, group, and format issues; do not invent data you have not
retrieved through a tool call. When you have everything you need, respond with the final HTML fragment
and no further tool calls. Prefer the fewest tool calls that answer the request.`

// cannedIterationCapMessage is the artifact returned when a Session exhausts
// maxIterations without the assistant emitting a tool-call-free turn.
const cannedIterationCapMessage = "report generation stopped after reaching the maximum number of tool-use iterations without a final answer"

// DriverConfig configures the Agent Loop Driver.
type DriverConfig struct {
	// MaxIterations bounds the number of LLM turns per session (default 15).
	MaxIterations int
	// Temperature is forwarded to the LLM provider on every call (default 0.3).
	Temperature float64
	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string
	// SummaryMaxChars bounds the Result Summarizer's output (default 50000).
	SummaryMaxChars int
	// NonCacheableTools lists tool names excluded from the automatic
	// Blackboard write on success.
	NonCacheableTools []string
	// MaxTokens bounds the LLM response length per call.
	MaxTokens int
}

// DefaultDriverConfig returns the stock driver settings.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		MaxIterations:   15,
		Temperature:     0.3,
		SummaryMaxChars: DefaultSummaryMaxChars,
		MaxTokens:       4096,
	}
}

func sanitizeDriverConfig(cfg DriverConfig) DriverConfig {
	def := DefaultDriverConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.SummaryMaxChars <= 0 {
		cfg.SummaryMaxChars = def.SummaryMaxChars
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return cfg
}

// AgentLoop is the Agent Loop Driver: it owns one Session's multi-turn
// conversation with the LLM, dispatching tool calls through the Execution
// Engine and terminating on natural stop, iteration cap, or fatal error.
type AgentLoop struct {
	Provider LLMProvider
	RateCtrl *ratelimit.Controller
	Registry *ToolRegistry
	Engine   *Engine
	Config   DriverConfig
}

// NewAgentLoop builds an AgentLoop. rateCtrl is process-global and typically
// shared across every AgentLoop in the process.
func NewAgentLoop(provider LLMProvider, rateCtrl *ratelimit.Controller, registry *ToolRegistry, cfg DriverConfig) *AgentLoop {
	cfg = sanitizeDriverConfig(cfg)
	return &AgentLoop{
		Provider: provider,
		RateCtrl: rateCtrl,
		Registry: registry,
		Engine:   NewEngine(registry, cfg.SummaryMaxChars, cfg.NonCacheableTools),
		Config:   cfg,
	}
}

// Run executes one full session against request and context. The Session
// passed in is reset at the start and may be reused across calls to Run on
// the same AgentLoop.
func (l *AgentLoop) Run(ctx context.Context, session *Session, request string, reqCtx models.RequestContext) (*models.RunResult, error) {
	if l.Provider == nil {
		return nil, ErrNoProvider
	}

	started := time.Now()
	session.Reset()

	session.AppendMessage(models.Message{Role: models.RoleSystem, Content: l.Config.SystemPrompt, CreatedAt: started})
	session.AppendMessage(buildUserMessage(request, reqCtx, started))

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return l.finishFailed(session, started, PhaseInit, iteration, Cancelled, err)
		}

		resp, err := l.callLLM(ctx, session)
		if err != nil {
			return l.finishFailed(session, started, PhaseCallLLM, iteration, classifyLoopError(err), err)
		}

		assistantMsg := models.Message{
			Role:      models.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			CreatedAt: time.Now(),
		}
		session.AppendMessage(assistantMsg)

		if len(resp.ToolCalls) == 0 {
			return l.finish(session, started, true, resp.Content, "", nil)
		}

		if err := l.dispatchToolCalls(ctx, session, iteration, resp.ToolCalls); err != nil {
			return l.finishFailed(session, started, PhaseExecuteTools, iteration, Cancelled, err)
		}

		if iteration >= l.Config.MaxIterations {
			return l.finish(session, started, true, cannedIterationCapMessage, IterationCapReached, nil)
		}
	}
}

// callLLM composes the transcript and tool schemas into a CompletionRequest
// and drives it through the Rate Controller.
func (l *AgentLoop) callLLM(ctx context.Context, session *Session) (*CompletionResponse, error) {
	req := &CompletionRequest{
		Messages:    session.Transcript(),
		Tools:       l.Registry.Schemas(),
		Temperature: l.Config.Temperature,
		MaxTokens:   l.Config.MaxTokens,
	}

	raw, err := l.RateCtrl.CallLLM(ctx, func(ctx context.Context) (any, error) {
		return l.Provider.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	resp, ok := raw.(*CompletionResponse)
	if !ok {
		return nil, fmt.Errorf("agent: unexpected LLM response type %T", raw)
	}
	return resp, nil
}

// dispatchToolCalls runs every tool invocation in one assistant turn and
// appends the matching ToolResult message for each. Calls run sequentially
// in emission order unless every tool in the batch is Parallelizable.
func (l *AgentLoop) dispatchToolCalls(ctx context.Context, session *Session, iteration int, calls []models.ToolCall) error {
	if l.allParallelizable(calls) {
		return l.dispatchParallel(ctx, session, iteration, calls)
	}
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.executeOne(ctx, session, iteration, call)
	}
	return nil
}

func (l *AgentLoop) allParallelizable(calls []models.ToolCall) bool {
	if len(calls) < 2 {
		return false
	}
	for _, call := range calls {
		tool, ok := l.Registry.Get(call.Name)
		if !ok || !tool.Parallelizable() {
			return false
		}
	}
	return true
}

// dispatchParallel fans out a batch of side-effect-free invocations with a
// bounded worker pool, preserving the resulting ToolResult messages in
// invocation order regardless of completion order.
func (l *AgentLoop) dispatchParallel(ctx context.Context, session *Session, iteration int, calls []models.ToolCall) error {
	type outcome struct {
		msg    models.Message
		record models.HistoryRecord
	}
	outcomes := make([]outcome, len(calls))

	const maxWorkers = 8
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			_, summary, record, _ := l.Engine.ExecuteCall(ctx, session.Board, iteration, call)
			outcomes[i] = outcome{
				msg:    models.Message{Role: models.RoleTool, ToolCallID: call.ID, Content: summary, CreatedAt: time.Now()},
				record: record,
			}
		}(i, call)
	}
	wg.Wait()

	for _, o := range outcomes {
		session.AppendHistory(o.record)
		session.AppendMessage(o.msg)
	}
	return nil
}

func (l *AgentLoop) executeOne(ctx context.Context, session *Session, iteration int, call models.ToolCall) {
	_, summary, record, _ := l.Engine.ExecuteCall(ctx, session.Board, iteration, call)
	session.AppendHistory(record)
	session.AppendMessage(models.Message{
		Role:       models.RoleTool,
		ToolCallID: call.ID,
		Content:    summary,
		CreatedAt:  time.Now(),
	})
}

// finishFailed ends the session on a fatal, non-recoverable condition,
// wrapping cause in a LoopError so callers inspecting the returned error can
// recover which phase and iteration the loop was in when it gave up.
func (l *AgentLoop) finishFailed(session *Session, started time.Time, phase LoopPhase, iteration int, kind ErrorKind, cause error) (*models.RunResult, error) {
	result, _ := l.finish(session, started, false, "", kind, cause)
	return result, &LoopError{Kind: kind, Phase: phase, Iteration: iteration, Cause: cause}
}

func (l *AgentLoop) finish(session *Session, started time.Time, success bool, artifact string, kind ErrorKind, cause error) (*models.RunResult, error) {
	result := &models.RunResult{
		Success:  success,
		Artifact: artifact,
		History:  session.History(),
		Elapsed:  time.Since(started),
	}
	if kind != "" {
		result.ErrorKind = string(kind)
	}
	if !success && cause != nil {
		return result, cause
	}
	return result, nil
}

// buildUserMessage concatenates the user's request text with a serialized
// JSON block of the structured context (date window, user id).
func buildUserMessage(request string, reqCtx models.RequestContext, at time.Time) models.Message {
	var b strings.Builder
	b.WriteString(request)

	if ctxJSON, err := json.Marshal(reqCtx); err == nil && string(ctxJSON) != "{}" {
		b.WriteString("\n\nRequest context:\n")
		b.Write(ctxJSON)
	}

	return models.Message{Role: models.RoleUser, Content: b.String(), CreatedAt: at}
}

// NewToolCallID mints an opaque id for tool invocations constructed outside
// the LLM provider (e.g. in tests).
func NewToolCallID() string {
	return uuid.NewString()
}

// classifyLoopError maps a fatal error from callLLM to the ErrorKind the
// Driver surfaces to its caller.
func classifyLoopError(err error) ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	if errors.Is(err, ratelimit.ErrAcquireTimeout) {
		return RateLimitTimeout
	}
	if ratelimit.IsRateLimitError(err) {
		return RateLimitError
	}
	return RateLimitError
}
