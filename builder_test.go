package authcore

import (
	"testing"
)

func TestBuildRequiresStores(t *testing.T) {
	stores := newFakeStores()
	keys := testKeyring(t)

	cases := []struct {
		name  string
		build func() *Builder
	}{
		{"missing credentials", func() *Builder {
			return New().WithConfig(testEngineConfig()).
				WithSessionStore(&fakeSessionStore{stores}).
				WithRefreshTokenStore(&fakeRefreshStore{stores}).
				WithKeys(keys)
		}},
		{"missing sessions", func() *Builder {
			return New().WithConfig(testEngineConfig()).
				WithCredentialStore(&fakeCredentialStore{stores}).
				WithRefreshTokenStore(&fakeRefreshStore{stores}).
				WithKeys(keys)
		}},
		{"missing refresh tokens", func() *Builder {
			return New().WithConfig(testEngineConfig()).
				WithCredentialStore(&fakeCredentialStore{stores}).
				WithSessionStore(&fakeSessionStore{stores}).
				WithKeys(keys)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.build().Build(); err == nil {
				t.Fatal("expected build error")
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	stores := newFakeStores()
	cfg := testEngineConfig()
	cfg.Keys.Bits = 1024

	_, err := New().
		WithConfig(cfg).
		WithCredentialStore(&fakeCredentialStore{stores}).
		WithSessionStore(&fakeSessionStore{stores}).
		WithRefreshTokenStore(&fakeRefreshStore{stores}).
		WithKeys(testKeyring(t)).
		Build()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	stores := newFakeStores()

	builder := New().
		WithConfig(testEngineConfig()).
		WithCredentialStore(&fakeCredentialStore{stores}).
		WithSessionStore(&fakeSessionStore{stores}).
		WithRefreshTokenStore(&fakeRefreshStore{stores}).
		WithKeys(testKeyring(t))

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected error on builder reuse")
	}
}

func TestSecurityReport(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Session.MaxPerUser = 5
	})

	report := engine.SecurityReport()
	if report.SigningAlgorithm != "RS256" {
		t.Fatalf("algorithm = %s", report.SigningAlgorithm)
	}
	if report.SessionCap != 5 {
		t.Fatalf("session cap = %d", report.SessionCap)
	}
	if !report.RefreshRotationEnabled {
		t.Fatal("rotation must always be reported active")
	}
	if !report.LockoutEnabled || report.LockoutThreshold != 5 {
		t.Fatalf("lockout = %v/%d", report.LockoutEnabled, report.LockoutThreshold)
	}
	if report.RateLimitingActive {
		t.Fatal("rate limiting disabled in the test config")
	}
	if report.DistributedRateLimits {
		t.Fatal("no redis backend wired")
	}
	if report.Argon2.Memory != 8*1024 {
		t.Fatalf("argon2 memory = %d", report.Argon2.Memory)
	}
}
