package internal

import (
	"strings"
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	encoded := sid.String()
	if encoded == "" {
		t.Fatal("expected non-empty encoding")
	}
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("expected url-safe encoding, got %q", encoded)
	}

	parsed, err := ParseSessionID(encoded)
	if err != nil {
		t.Fatalf("ParseSessionID failed: %v", err)
	}
	if parsed != sid {
		t.Fatalf("round trip mismatch: %v != %v", parsed, sid)
	}
}

func TestSessionIDUnique(t *testing.T) {
	seen := map[SessionID]bool{}
	for i := 0; i < 64; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID failed: %v", err)
		}
		if seen[sid] {
			t.Fatal("duplicate session id")
		}
		seen[sid] = true
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	if _, err := ParseSessionID("not base64url!!"); err == nil {
		t.Fatal("expected error for invalid encoding")
	}
	if _, err := ParseSessionID("c2hvcnQ"); err == nil {
		t.Fatal("expected error for wrong size")
	}
}

func TestNewOpaqueTokenEnforcesMinimum(t *testing.T) {
	if _, err := NewOpaqueToken(MinOpaqueSize - 1); err == nil {
		t.Fatal("expected error below minimum size")
	}

	token, err := NewOpaqueToken(RefreshSecretSize)
	if err != nil {
		t.Fatalf("NewOpaqueToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	other, err := NewOpaqueToken(RefreshSecretSize)
	if err != nil {
		t.Fatalf("NewOpaqueToken failed: %v", err)
	}
	if token == other {
		t.Fatal("expected distinct tokens")
	}
}

func TestHashTokenStableAndHex(t *testing.T) {
	first := HashToken("secret-value")
	second := HashToken("secret-value")
	if first != second {
		t.Fatal("expected deterministic digest")
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
	if HashToken("other-value") == first {
		t.Fatal("expected distinct digests for distinct tokens")
	}
}

func TestNewCorrelationIDUnique(t *testing.T) {
	if NewCorrelationID() == NewCorrelationID() {
		t.Fatal("expected unique correlation ids")
	}
}
