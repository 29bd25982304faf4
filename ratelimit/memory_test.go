package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemorySlidingWindow(t *testing.T) {
	backend := NewMemoryBackend()
	limit := Limit{Requests: 3, Window: time.Minute, Strategy: SlidingWindow}
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, err := backend.Check(context.Background(), "login:alice", limit, base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if result.Remaining != 3-i-1 {
			t.Fatalf("request %d: remaining = %d", i, result.Remaining)
		}
	}

	denied, err := backend.Check(context.Background(), "login:alice", limit, base.Add(3*time.Second))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if denied.Allowed {
		t.Fatal("fourth request should be denied")
	}
	if denied.RetryAfter <= 0 {
		t.Fatal("expected a positive retry hint")
	}

	// Once the oldest entry slides out, one slot opens.
	later, err := backend.Check(context.Background(), "login:alice", limit, base.Add(61*time.Second))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !later.Allowed {
		t.Fatal("request after window slide should be allowed")
	}
}

func TestMemorySlidingWindowIsolatesKeys(t *testing.T) {
	backend := NewMemoryBackend()
	limit := Limit{Requests: 1, Window: time.Minute, Strategy: SlidingWindow}
	now := time.Now()

	first, _ := backend.Check(context.Background(), "login:alice", limit, now)
	if !first.Allowed {
		t.Fatal("alice's first request should be allowed")
	}
	other, _ := backend.Check(context.Background(), "login:bob", limit, now)
	if !other.Allowed {
		t.Fatal("bob should have a separate budget")
	}
	second, _ := backend.Check(context.Background(), "login:alice", limit, now)
	if second.Allowed {
		t.Fatal("alice's second request should be denied")
	}
}

func TestMemoryFixedWindow(t *testing.T) {
	backend := NewMemoryBackend()
	limit := Limit{Requests: 2, Window: time.Hour, Strategy: FixedWindow}
	base := time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		result, err := backend.Check(context.Background(), "register:ip", limit, base)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	denied, _ := backend.Check(context.Background(), "register:ip", limit, base.Add(time.Minute))
	if denied.Allowed {
		t.Fatal("third request in the window should be denied")
	}

	// The count resets at the window boundary, not a rolling cutoff.
	next, _ := backend.Check(context.Background(), "register:ip", limit, base.Add(time.Hour))
	if !next.Allowed {
		t.Fatal("request in the next window should be allowed")
	}
}

func TestMemoryTokenBucket(t *testing.T) {
	backend := NewMemoryBackend()
	limit := Limit{Requests: 2, Window: time.Minute, Strategy: TokenBucket}
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		result, err := backend.Check(context.Background(), "refresh:sess", limit, base)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should drain a token", i)
		}
	}

	denied, _ := backend.Check(context.Background(), "refresh:sess", limit, base)
	if denied.Allowed {
		t.Fatal("empty bucket should deny")
	}
	if denied.RetryAfter <= 0 {
		t.Fatal("expected a positive retry hint")
	}

	// Half the window refills one token at 2 requests per minute.
	refilled, _ := backend.Check(context.Background(), "refresh:sess", limit, base.Add(30*time.Second))
	if !refilled.Allowed {
		t.Fatal("refilled bucket should admit")
	}
	again, _ := backend.Check(context.Background(), "refresh:sess", limit, base.Add(30*time.Second))
	if again.Allowed {
		t.Fatal("bucket should be empty again")
	}
}

func TestMemoryBackendRejectsInvalidLimit(t *testing.T) {
	backend := NewMemoryBackend()
	_, err := backend.Check(context.Background(), "k", Limit{Requests: 0, Window: time.Minute, Strategy: SlidingWindow}, time.Now())
	if err == nil {
		t.Fatal("expected validation error")
	}
	_, err = backend.Check(context.Background(), "k", Limit{Requests: 1, Window: time.Minute, Strategy: Strategy("bogus")}, time.Now())
	if err == nil {
		t.Fatal("expected unknown strategy error")
	}
}
