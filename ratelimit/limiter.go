package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Limiter applies a per-operation-class budget with a
// distributed-or-local backend policy: check the primary backend
// (Redis) first, fall back to the in-process backend when the primary
// errors, and fail open when even the fallback cannot answer. The
// fail-open branch is a deliberate availability-over-strictness
// tradeoff; it is logged at error level and reported through the
// FailOpen hook so it never passes silently.
type Limiter struct {
	limits   map[string]Limit
	primary  Backend
	fallback Backend
	logger   zerolog.Logger
	now      func() time.Time

	// FailOpen, when set, is invoked every time a check is admitted
	// because all backends failed. Used by the engine to emit a
	// security event.
	FailOpen func(class, identifier string, err error)
}

// NewLimiter builds a Limiter over the given per-class limits. primary
// may be nil (single-instance deployments); fallback defaults to a
// fresh MemoryBackend.
func NewLimiter(limits map[string]Limit, primary, fallback Backend, logger zerolog.Logger) (*Limiter, error) {
	for _, limit := range limits {
		if err := limit.Validate(); err != nil {
			return nil, err
		}
	}
	if fallback == nil {
		fallback = NewMemoryBackend()
	}
	return &Limiter{
		limits:   limits,
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Limit returns the configured limit for a class, if any.
func (l *Limiter) Limit(class string) (Limit, bool) {
	limit, ok := l.limits[class]
	return limit, ok
}

// Distributed reports whether a primary (distributed) backend is wired.
func (l *Limiter) Distributed() bool {
	return l != nil && l.primary != nil
}

// Check admits or denies one request for the class+identifier pair.
// A class with no configured limit is always admitted. Check never
// returns an error: limiter outages fail open.
func (l *Limiter) Check(ctx context.Context, class, identifier string) Result {
	limit, ok := l.limits[class]
	if !ok {
		return Result{Allowed: true, Remaining: -1}
	}

	now := l.now()
	key := class + ":" + identifier

	if l.primary != nil {
		result, err := l.primary.Check(ctx, key, limit, now)
		if err == nil {
			return result
		}
		l.logger.Warn().
			Err(err).
			Str("class", class).
			Msg("distributed rate limit backend failed, falling back to memory")
	}

	result, err := l.fallback.Check(ctx, key, limit, now)
	if err == nil {
		return result
	}

	l.logger.Error().
		Err(err).
		Str("class", class).
		Str("identifier", identifier).
		Msg("rate limiter unavailable, failing open")
	if l.FailOpen != nil {
		l.FailOpen(class, identifier, err)
	}

	return Result{
		Allowed:   true,
		Remaining: limit.Requests,
		ResetAt:   now.Add(limit.Window),
	}
}
