package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogoutRevokesSessionAndChain(t *testing.T) {
	engine, stores, clock, sink := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	if err := engine.Logout(context.Background(), pair.SessionID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	session, err := engine.sessions.Get(context.Background(), pair.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if session.Active(clock.Now()) {
		t.Fatal("expected session revoked")
	}

	_, redeemable := stores.refreshRecordCount(pair.SessionID, clock.Now())
	if redeemable != 0 {
		t.Fatalf("expected refresh chain revoked, %d still redeemable", redeemable)
	}

	snapshot := engine.MetricsSnapshot()
	if snapshot.Counters[MetricSessionRevoked] != 1 {
		t.Fatalf("revoked counter = %d", snapshot.Counters[MetricSessionRevoked])
	}

	counts := eventTypes(drainEvents(engine, sink))
	if counts["logout_session"] != 1 {
		t.Fatalf("expected one logout_session event, got %v", counts)
	}
}

func TestLogoutMissingOrRepeated(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	registerUser(t, engine, "alice@example.com", "correct-horse")
	pair := loginPair(t, engine)

	if err := engine.Logout(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if err := engine.Logout(context.Background(), pair.SessionID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// A second logout of the same session reports not found.
	if err := engine.Logout(context.Background(), pair.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on repeat, got %v", err)
	}
}

func TestLogoutOthersKeepsCurrentSession(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t, nil)

	userID := registerUser(t, engine, "alice@example.com", "correct-horse")

	var pairs []*TokenPair
	for i := 0; i < 3; i++ {
		pairs = append(pairs, loginPair(t, engine))
		clock.Advance(time.Minute)
	}
	current := pairs[2]

	count, err := engine.LogoutOthers(context.Background(), userID, current.SessionID)
	if err != nil {
		t.Fatalf("LogoutOthers failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("revoked %d sessions, want 2", count)
	}

	if _, err := engine.Validate(context.Background(), current.AccessToken); err != nil {
		t.Fatalf("kept session must stay valid: %v", err)
	}
	for _, pair := range pairs[:2] {
		if _, err := engine.Validate(context.Background(), pair.AccessToken); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	}

	sessions, err := engine.Sessions(context.Background(), userID)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != current.SessionID {
		t.Fatalf("unexpected surviving sessions: %+v", sessions)
	}
}

func TestLogoutAll(t *testing.T) {
	engine, _, clock, sink := newTestEngine(t, nil)

	userID := registerUser(t, engine, "alice@example.com", "correct-horse")

	var pairs []*TokenPair
	for i := 0; i < 3; i++ {
		pairs = append(pairs, loginPair(t, engine))
		clock.Advance(time.Minute)
	}

	count, err := engine.LogoutAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("revoked %d sessions, want 3", count)
	}

	for _, pair := range pairs {
		if _, err := engine.Validate(context.Background(), pair.AccessToken); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked after LogoutAll, got %v", err)
		}
	}

	sessions, err := engine.Sessions(context.Background(), userID)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sessions))
	}

	// Idempotent: nothing left to revoke.
	count, err = engine.LogoutAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("second LogoutAll failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("second LogoutAll revoked %d", count)
	}

	counts := eventTypes(drainEvents(engine, sink))
	if counts["logout_all"] != 2 {
		t.Fatalf("expected two logout_all events, got %v", counts)
	}
}
