package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/keyring"
)

var (
	testKeysOnce sync.Once
	testKeys     *keyring.Static
)

// testKeyring shares one RSA keypair across the suite; generating it is
// the slow part of engine construction.
func testKeyring(t *testing.T) *keyring.Static {
	t.Helper()
	testKeysOnce.Do(func() {
		keys, err := keyring.NewEphemeral(2048)
		if err != nil {
			panic(err)
		}
		testKeys = keys
	})
	return testKeys
}

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// fakeStores backs all three store interfaces in memory. The two Save
// methods differ in signature, so each interface is exposed through its
// own view type over the shared state.
type fakeStores struct {
	mu             sync.Mutex
	credentials    map[string]CredentialRecord
	identifierByID map[string]string
	sessions       map[string]SessionRecord
	refreshByHash  map[string]RefreshTokenRecord
	hashByID       map[string]string
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		credentials:    make(map[string]CredentialRecord),
		identifierByID: make(map[string]string),
		sessions:       make(map[string]SessionRecord),
		refreshByHash:  make(map[string]RefreshTokenRecord),
		hashByID:       make(map[string]string),
	}
}

type fakeCredentialStore struct{ *fakeStores }

type fakeSessionStore struct{ *fakeStores }

type fakeRefreshStore struct{ *fakeStores }

func (s *fakeCredentialStore) GetByIdentifier(_ context.Context, identifier string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.credentials[identifier]
	if !ok {
		return CredentialRecord{}, ErrUserNotFound
	}
	return record, nil
}

func (s *fakeCredentialStore) GetByID(_ context.Context, userID string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identifier, ok := s.identifierByID[userID]
	if !ok {
		return CredentialRecord{}, ErrUserNotFound
	}
	return s.credentials[identifier], nil
}

func (s *fakeCredentialStore) Create(_ context.Context, record CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[record.Identifier]; exists {
		return ErrAccountExists
	}
	s.credentials[record.Identifier] = record
	s.identifierByID[record.UserID] = record.Identifier
	return nil
}

func (s *fakeCredentialStore) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identifier, ok := s.identifierByID[userID]
	if !ok {
		return ErrUserNotFound
	}
	record := s.credentials[identifier]
	record.PasswordHash = passwordHash
	record.FailedAttempts = 0
	record.LockedUntil = time.Time{}
	s.credentials[identifier] = record
	return nil
}

func (s *fakeCredentialStore) RecordFailure(_ context.Context, userID string, at time.Time, threshold int, lockFor time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identifier, ok := s.identifierByID[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	record := s.credentials[identifier]
	record.FailedAttempts++
	locked := record.FailedAttempts >= threshold
	if locked {
		record.LockedUntil = at.Add(lockFor)
	}
	s.credentials[identifier] = record
	return locked, nil
}

func (s *fakeCredentialStore) ClearFailures(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identifier, ok := s.identifierByID[userID]
	if !ok {
		return ErrUserNotFound
	}
	record := s.credentials[identifier]
	record.FailedAttempts = 0
	record.LockedUntil = time.Time{}
	s.credentials[identifier] = record
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, sessionID string) (SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	return record, nil
}

func (s *fakeSessionStore) ListByUser(_ context.Context, userID string) ([]SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SessionRecord
	for _, record := range s.sessions {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *fakeSessionStore) Save(_ context.Context, record SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[record.SessionID] = record
	return nil
}

func (s *fakeSessionStore) Revoke(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if record.RevokedAt.IsZero() {
		record.RevokedAt = at
		s.sessions[sessionID] = record
	}
	return nil
}

func (s *fakeSessionStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	record.LastUsedAt = at
	s.sessions[sessionID] = record
	return nil
}

func (s *fakeRefreshStore) GetByHash(_ context.Context, tokenHash string) (RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.refreshByHash[tokenHash]
	if !ok {
		return RefreshTokenRecord{}, ErrRefreshInvalid
	}
	return record, nil
}

func (s *fakeRefreshStore) Save(_ context.Context, record RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveRefreshLocked(record)
	return nil
}

func (s *fakeStores) saveRefreshLocked(record RefreshTokenRecord) {
	s.refreshByHash[record.TokenHash] = record
	s.hashByID[record.ID] = record.TokenHash
}

func (s *fakeRefreshStore) Rotate(_ context.Context, oldID string, usedAt time.Time, replacement RefreshTokenRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashByID[oldID]
	if !ok {
		return false, nil
	}
	record := s.refreshByHash[hash]
	if !record.UsedAt.IsZero() || !record.RevokedAt.IsZero() {
		return false, nil
	}
	record.UsedAt = usedAt
	record.ReplacedBy = replacement.ID
	s.refreshByHash[hash] = record
	s.saveRefreshLocked(replacement)
	return true, nil
}

func (s *fakeRefreshStore) RevokeBySession(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, record := range s.refreshByHash {
		if record.SessionID == sessionID && record.RevokedAt.IsZero() {
			record.RevokedAt = at
			s.refreshByHash[hash] = record
		}
	}
	return nil
}

func (s *fakeStores) credentialByIdentifier(identifier string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.credentials[identifier]
	if !ok {
		return CredentialRecord{}, ErrUserNotFound
	}
	return record, nil
}

// refreshRecordCount reports how many refresh records the session owns
// and how many of those are still redeemable.
func (s *fakeStores) refreshRecordCount(sessionID string, now time.Time) (total, redeemable int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.refreshByHash {
		if record.SessionID != sessionID {
			continue
		}
		total++
		if record.Redeemable(now) {
			redeemable++
		}
	}
	return total, redeemable
}

// testEngineConfig keeps argon2 at the validation floor so the suite
// stays fast, and disables rate limiting; tests that exercise limits
// re-enable them explicitly.
func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.RateLimit.Enabled = false
	cfg.Audit.BufferSize = 1024
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *fakeStores, *fakeClock, *audit.ChannelSink) {
	t.Helper()

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	stores := newFakeStores()
	clock := newFakeClock()
	sink := NewChannelSink(1024)

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(&fakeCredentialStore{stores}).
		WithSessionStore(&fakeSessionStore{stores}).
		WithRefreshTokenStore(&fakeRefreshStore{stores}).
		WithKeys(testKeyring(t)).
		WithClock(clock.Now).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, stores, clock, sink
}

// drainEvents closes the engine's dispatcher so pending events flush,
// then returns everything the sink captured.
func drainEvents(engine *Engine, sink *audit.ChannelSink) []AuditEvent {
	engine.Close()

	var events []AuditEvent
	for {
		select {
		case event := <-sink.Events():
			events = append(events, event)
		default:
			return events
		}
	}
}

func eventTypes(events []AuditEvent) map[string]int {
	counts := make(map[string]int)
	for _, event := range events {
		counts[event.EventType]++
	}
	return counts
}

func registerUser(t *testing.T, engine *Engine, identifier, password string) string {
	t.Helper()
	result, err := engine.Register(context.Background(), identifier, password)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result.UserID
}
