package authcore

import (
	"errors"
	"testing"
)

func TestIssueAndCheckPurposeTokens(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	purposes := []TokenPurpose{
		PurposeEmailVerification,
		PurposePasswordReset,
		PurposeMFAChallenge,
	}
	for _, purpose := range purposes {
		issued, err := engine.IssueToken("user-1", purpose)
		if err != nil {
			t.Fatalf("IssueToken(%s) failed: %v", purpose, err)
		}
		subject, err := engine.CheckToken(issued, purpose)
		if err != nil {
			t.Fatalf("CheckToken(%s) failed: %v", purpose, err)
		}
		if subject != "user-1" {
			t.Fatalf("subject = %q", subject)
		}
	}
}

func TestIssueTokenRejectsSessionBoundPurposes(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	if _, err := engine.IssueToken("user-1", PurposeAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access purpose, got %v", err)
	}
	if _, err := engine.IssueToken("user-1", PurposeRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh purpose, got %v", err)
	}
}

func TestCheckTokenPurposeMismatch(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	reset, err := engine.IssueToken("user-1", PurposePasswordReset)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	// A reset token must not pass as an email verification token.
	if _, err := engine.CheckToken(reset, PurposeEmailVerification); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	if _, err := engine.CheckToken("garbage", PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}
