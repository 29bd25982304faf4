package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type failingBackend struct{}

func (failingBackend) Check(context.Context, string, Limit, time.Time) (Result, error) {
	return Result{}, ErrBackendUnavailable
}

func testLimits() map[string]Limit {
	return map[string]Limit{
		"login": {Requests: 2, Window: time.Minute, Strategy: SlidingWindow},
	}
}

func TestLimiterEnforcesConfiguredClass(t *testing.T) {
	limiter, err := NewLimiter(testLimits(), nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if result := limiter.Check(context.Background(), "login", "alice"); !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if result := limiter.Check(context.Background(), "login", "alice"); result.Allowed {
		t.Fatal("third request should be denied")
	}
}

func TestLimiterAdmitsUnknownClass(t *testing.T) {
	limiter, err := NewLimiter(testLimits(), nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if result := limiter.Check(context.Background(), "unconfigured", "alice"); !result.Allowed {
			t.Fatal("unconfigured class must always admit")
		}
	}
}

func TestLimiterFallsBackWhenPrimaryFails(t *testing.T) {
	limiter, err := NewLimiter(testLimits(), failingBackend{}, NewMemoryBackend(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	// The memory fallback still enforces the budget.
	for i := 0; i < 2; i++ {
		if result := limiter.Check(context.Background(), "login", "alice"); !result.Allowed {
			t.Fatalf("request %d should be allowed via fallback", i)
		}
	}
	if result := limiter.Check(context.Background(), "login", "alice"); result.Allowed {
		t.Fatal("fallback should deny the third request")
	}
}

func TestLimiterFailsOpenWhenAllBackendsFail(t *testing.T) {
	limiter, err := NewLimiter(testLimits(), failingBackend{}, failingBackend{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	var hookClass, hookIdentifier string
	var hookErr error
	limiter.FailOpen = func(class, identifier string, err error) {
		hookClass, hookIdentifier, hookErr = class, identifier, err
	}

	result := limiter.Check(context.Background(), "login", "alice")
	if !result.Allowed {
		t.Fatal("expected fail-open admission")
	}
	if hookClass != "login" || hookIdentifier != "alice" {
		t.Fatalf("hook saw %q/%q", hookClass, hookIdentifier)
	}
	if !errors.Is(hookErr, ErrBackendUnavailable) {
		t.Fatalf("hook error = %v", hookErr)
	}
}

func TestLimiterDistributed(t *testing.T) {
	local, err := NewLimiter(testLimits(), nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	if local.Distributed() {
		t.Fatal("limiter without primary must not report distributed")
	}

	shared, err := NewLimiter(testLimits(), failingBackend{}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	if !shared.Distributed() {
		t.Fatal("limiter with primary must report distributed")
	}
}

func TestNewLimiterValidatesLimits(t *testing.T) {
	bad := map[string]Limit{
		"login": {Requests: 0, Window: time.Minute, Strategy: SlidingWindow},
	}
	if _, err := NewLimiter(bad, nil, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLimiterLimitLookup(t *testing.T) {
	limiter, err := NewLimiter(testLimits(), nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	limit, ok := limiter.Limit("login")
	if !ok || limit.Requests != 2 {
		t.Fatalf("unexpected limit %+v ok=%v", limit, ok)
	}
	if _, ok := limiter.Limit("nope"); ok {
		t.Fatal("expected missing class")
	}
}
