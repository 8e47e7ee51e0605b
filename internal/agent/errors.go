package agent

import (
	"errors"
	"fmt"
)

// ErrorKind classifies what went wrong with a call: the classification
// attached to a CallOutcome or surfaced to the Driver.
type ErrorKind string

const (
	// ArgParseError: the LLM emitted invalid JSON for a tool's arguments.
	// Recovered — reported back to the LLM, session continues.
	ArgParseError ErrorKind = "arg_parse_error"

	// UnknownTool: the LLM named a tool absent from the registry. Recovered.
	UnknownTool ErrorKind = "unknown_tool"

	// ToolExecutionError: the tool's executor returned an error. Recovered.
	ToolExecutionError ErrorKind = "tool_execution_error"

	// SchemaViolation: resolved arguments failed validation against the
	// tool's declared parameter schema. Recovered, same policy as
	// ArgParseError.
	SchemaViolation ErrorKind = "schema_violation"

	// UnresolvedReference: a $k reference had no Blackboard entry. Non-fatal
	// warning, not a terminal error kind — recorded against the call only.
	UnresolvedReference ErrorKind = "unresolved_reference"

	// RateLimitError: the LLM provider signaled 429-class failure after
	// exhausting the Rate Controller's retries. Fatal to the session.
	RateLimitError ErrorKind = "rate_limit_error"

	// RateLimitTimeout: admission could not be obtained within the
	// configured timeout. Fatal.
	RateLimitTimeout ErrorKind = "rate_limit_timeout"

	// Cancelled: a caller-supplied cancellation signal fired. Fatal.
	Cancelled ErrorKind = "cancelled"

	// IterationCapReached: not strictly an error, a distinct terminal state
	// with a canned artifact.
	IterationCapReached ErrorKind = "iteration_cap_reached"
)

// Recoverable reports whether an ErrorKind is fed back to the LLM so the
// session can continue (true), or terminates the session (false).
func (k ErrorKind) Recoverable() bool {
	switch k {
	case ArgParseError, UnknownTool, ToolExecutionError, SchemaViolation, UnresolvedReference:
		return true
	default:
		return false
	}
}

// CallError is the structured error produced by the Execution Engine
// for one tool invocation. It always names the kind and the tool (when
// known) so the Driver can decide whether to recover or abort.
type CallError struct {
	Kind     ErrorKind
	ToolName string
	CallID   string
	Message  string
	Cause    error
}

func (e *CallError) Error() string {
	if e.ToolName != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.ToolName, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CallError) Unwrap() error { return e.Cause }

func newCallError(kind ErrorKind, toolName, callID string, cause error) *CallError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &CallError{Kind: kind, ToolName: toolName, CallID: callID, Message: msg, Cause: cause}
}

// LoopPhase names a stage of the Agent Loop Driver's state machine.
type LoopPhase string

const (
	PhaseInit         LoopPhase = "init"
	PhaseCallLLM      LoopPhase = "call_llm"
	PhaseExecuteTools LoopPhase = "execute_tools"
	PhaseContinue     LoopPhase = "continue"
	PhaseComplete     LoopPhase = "complete"
)

// LoopError carries the phase and iteration a fatal loop-level failure
// occurred in, alongside its ErrorKind.
type LoopError struct {
	Kind      ErrorKind
	Phase     LoopPhase
	Iteration int
	Cause     error
}

func (e *LoopError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("loop error (%s) at %s, iteration %d: %v", e.Kind, e.Phase, e.Iteration, e.Cause)
	}
	return fmt.Sprintf("loop error (%s) at %s, iteration %d", e.Kind, e.Phase, e.Iteration)
}

func (e *LoopError) Unwrap() error { return e.Cause }

// ErrNoProvider is returned by AgentLoop.Run when the loop has no
// LLMProvider configured — a construction-time condition rather than a
// per-call ErrorKind.
var ErrNoProvider = errors.New("agent: no LLM provider configured")
