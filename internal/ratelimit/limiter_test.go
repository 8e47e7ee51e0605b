package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically instead of sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestController_AdmitsUpToLimitImmediately(t *testing.T) {
	c := NewController(Config{MaxRequestsPerMinute: 3, AcquireTimeout: time.Second})
	clock := newFakeClock()
	c.now = clock.Now

	for i := 0; i < 3; i++ {
		wait, admitted := c.tryAdmit()
		if !admitted {
			t.Fatalf("admission %d: expected admitted", i)
		}
		if wait > 0 {
			clock.Advance(wait)
		}
	}

	if _, admitted := c.tryAdmit(); admitted {
		t.Fatal("4th admission within the window should be refused")
	}
}

func TestController_SlidingWindowEvictsStaleEntries(t *testing.T) {
	c := NewController(Config{MaxRequestsPerMinute: 2, AcquireTimeout: time.Second})
	clock := newFakeClock()
	c.now = clock.Now

	if _, admitted := c.tryAdmit(); !admitted {
		t.Fatal("expected first admission")
	}
	if _, admitted := c.tryAdmit(); !admitted {
		t.Fatal("expected second admission")
	}
	if _, admitted := c.tryAdmit(); admitted {
		t.Fatal("expected third admission to be refused within window")
	}

	clock.Advance(61 * time.Second)

	if _, admitted := c.tryAdmit(); !admitted {
		t.Fatal("expected admission after window elapsed")
	}
}

func TestController_MinimumSpacing(t *testing.T) {
	c := NewController(Config{MaxRequestsPerMinute: 2, AcquireTimeout: time.Second})
	clock := newFakeClock()
	c.now = clock.Now

	if wait, admitted := c.tryAdmit(); !admitted || wait != 0 {
		t.Fatalf("first admission: admitted=%v wait=%v", admitted, wait)
	}
	wait, admitted := c.tryAdmit()
	if !admitted {
		t.Fatal("expected second admission")
	}
	if wait != window/2 {
		t.Fatalf("expected spacing wait of %v, got %v", window/2, wait)
	}
}

func TestController_AcquireTimesOut(t *testing.T) {
	c := NewController(Config{MaxRequestsPerMinute: 1, AcquireTimeout: 10 * time.Millisecond})
	c.tryAdmit() // consume the only slot

	admitted, err := c.Acquire(context.Background(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if admitted {
		t.Fatal("expected timeout, got admitted")
	}
}

func TestController_AcquireHonorsCancellation(t *testing.T) {
	c := NewController(Config{MaxRequestsPerMinute: 1, AcquireTimeout: time.Minute})
	c.tryAdmit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Acquire(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestController_BackoffIsMonotonicAndBounded(t *testing.T) {
	c := NewController(Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second})

	prev := time.Duration(0)
	for attempt := 0; attempt < 6; attempt++ {
		d := c.backoffFor(attempt)
		if d < prev {
			t.Fatalf("backoff decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > c.config.MaxBackoff {
			t.Fatalf("backoff %v exceeds max %v", d, c.config.MaxBackoff)
		}
		prev = d
	}
}

func TestController_CallLLMRetriesOnRateLimitThenSucceeds(t *testing.T) {
	c := NewController(Config{
		MaxRequestsPerMinute: 5,
		MaxRetries:           3,
		InitialBackoff:       time.Millisecond,
		MaxBackoff:           5 * time.Millisecond,
		AcquireTimeout:       time.Second,
	})

	attempts := 0
	_, err := c.CallLLM(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("429 Too Many Requests")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestController_CallLLMSurfacesAfterExhaustingRetries(t *testing.T) {
	c := NewController(Config{
		MaxRequestsPerMinute: 5,
		MaxRetries:           2,
		InitialBackoff:       time.Millisecond,
		MaxBackoff:           time.Millisecond,
		AcquireTimeout:       time.Second,
	})

	attempts := 0
	_, err := c.CallLLM(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("rate limit exceeded")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (MaxRetries+1), got %d", attempts)
	}
}

func TestIsRateLimitError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("HTTP 429"), true},
		{errors.New("Too Many Requests"), true},
		{errors.New("Rate Limit Exceeded"), true},
		{errors.New("quota exceeded for project"), true},
		{errors.New("connection reset by peer"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsRateLimitError(tc.err); got != tc.want {
			t.Errorf("IsRateLimitError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
