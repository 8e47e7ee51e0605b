package agent

import (
	"errors"
	"testing"
)

func TestErrorKindRecoverable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{ArgParseError, true},
		{UnknownTool, true},
		{ToolExecutionError, true},
		{SchemaViolation, true},
		{UnresolvedReference, true},
		{RateLimitError, false},
		{RateLimitTimeout, false},
		{Cancelled, false},
		{IterationCapReached, false},
	}
	for _, tc := range tests {
		if got := tc.kind.Recoverable(); got != tc.want {
			t.Errorf("%s.Recoverable() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestCallErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newCallError(ToolExecutionError, "search_issues", "call-1", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty error string")
	}
}

func TestLoopErrorUnwrap(t *testing.T) {
	cause := errors.New("timed out")
	err := &LoopError{Kind: RateLimitTimeout, Phase: PhaseCallLLM, Iteration: 2, Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}
