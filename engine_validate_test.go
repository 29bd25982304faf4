package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidateSuccessTouchesSession(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t, nil)

	userID := registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	clock.Advance(time.Minute)

	auth, err := engine.Validate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if auth.UserID != userID {
		t.Fatalf("validated user = %q, want %q", auth.UserID, userID)
	}
	if auth.SessionID != pair.SessionID {
		t.Fatalf("validated session = %q", auth.SessionID)
	}

	session, err := engine.sessions.Get(context.Background(), pair.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if !session.LastUsedAt.After(session.CreatedAt) {
		t.Fatal("expected validation to advance last_used_at")
	}

	snapshot := engine.MetricsSnapshot()
	if snapshot.Counters[MetricValidateSuccess] != 1 {
		t.Fatalf("validate success counter = %d", snapshot.Counters[MetricValidateSuccess])
	}
}

func TestValidateRejectsGarbageAndWrongPurpose(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	if _, err := engine.Validate(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}

	// A refresh token must not authenticate requests.
	if _, err := engine.Validate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong purpose, got %v", err)
	}
}

func TestValidateRevokedSession(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	if err := engine.Logout(context.Background(), pair.SessionID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err := engine.Validate(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestValidateExpiredSession(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	// The session ages out from the store side. The access token itself
	// is still signed and unexpired; the session gate must catch it.
	clock.Advance(8 * 24 * time.Hour)

	_, err := engine.Validate(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestValidateMissingSession(t *testing.T) {
	engine, stores, _, _ := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	stores.mu.Lock()
	delete(stores.sessions, pair.SessionID)
	stores.mu.Unlock()

	_, err := engine.Validate(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTouchSession(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	clock.Advance(time.Hour)
	if err := engine.TouchSession(context.Background(), pair.SessionID); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}

	session, err := engine.sessions.Get(context.Background(), pair.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if !session.LastUsedAt.Equal(clock.Now()) {
		t.Fatalf("last_used_at = %v, want %v", session.LastUsedAt, clock.Now())
	}

	if err := engine.TouchSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
