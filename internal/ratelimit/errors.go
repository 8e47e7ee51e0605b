package ratelimit

import "errors"

// ErrAcquireTimeout is returned by CallLLM when Acquire could not obtain a
// slot within the configured timeout. Fatal to the session.
var ErrAcquireTimeout = errors.New("ratelimit: acquire timed out")
