package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Strategy selects the algorithm a Limit is enforced with.
type Strategy string

const (
	// SlidingWindow is an exported constant or variable used by the authentication engine.
	SlidingWindow Strategy = "sliding_window"
	// TokenBucket is an exported constant or variable used by the authentication engine.
	TokenBucket Strategy = "token_bucket"
	// FixedWindow is an exported constant or variable used by the authentication engine.
	FixedWindow Strategy = "fixed_window"
)

// ErrBackendUnavailable wraps backend transport failures so the Limiter
// can distinguish them from programming errors.
var ErrBackendUnavailable = errors.New("rate limit backend unavailable")

// Limit is the budget for one operation class.
type Limit struct {
	Requests int
	Window   time.Duration
	Strategy Strategy
}

// Validate reports whether the limit is enforceable.
func (l Limit) Validate() error {
	if l.Requests <= 0 {
		return errors.New("ratelimit: requests must be positive")
	}
	if l.Window <= 0 {
		return errors.New("ratelimit: window must be positive")
	}
	switch l.Strategy {
	case SlidingWindow, TokenBucket, FixedWindow:
		return nil
	default:
		return fmt.Errorf("ratelimit: unknown strategy %q", l.Strategy)
	}
}

// Result is the outcome of a single admission check. RetryAfter is set
// only when the request was denied.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Backend stores and updates per-key limiter state. Implementations
// must make each Check atomic with respect to concurrent callers
// sharing the same key.
type Backend interface {
	Check(ctx context.Context, key string, limit Limit, now time.Time) (Result, error)
}
