package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	credentialsTable   = "user_credentials"
	sessionsTable      = "user_sessions"
	refreshTokensTable = "refresh_tokens"
)

// Store defines a public type used by authcore APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	pool *pgxpool.Pool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(ctx context.Context, dsn string) (*Store, error) {
	const op = "postgres.New"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool. The caller keeps ownership and is
// responsible for closing it.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the authcore tables and indexes when they do not exist.
// It is safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	const op = "postgres.Migrate"

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + credentialsTable + ` (
			user_id         TEXT PRIMARY KEY,
			identifier      TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL,
			failed_attempts INT NOT NULL DEFAULT 0,
			locked_until    TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + sessionsTable + ` (
			session_id   TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			ip           TEXT NOT NULL DEFAULT '',
			user_agent   TEXT NOT NULL DEFAULT '',
			remember_me  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL,
			last_used_at TIMESTAMPTZ NOT NULL,
			expires_at   TIMESTAMPTZ NOT NULL,
			revoked_at   TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS ` + sessionsTable + `_user_id_idx
			ON ` + sessionsTable + ` (user_id)`,
		`CREATE TABLE IF NOT EXISTS ` + refreshTokensTable + ` (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			token_hash  TEXT NOT NULL UNIQUE,
			issued_at   TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL,
			used_at     TIMESTAMPTZ,
			revoked_at  TIMESTAMPTZ,
			replaced_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS ` + refreshTokensTable + `_session_id_idx
			ON ` + refreshTokensTable + ` (session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Close() {
	s.pool.Close()
}

// nullableTime maps the zero time to SQL NULL on write.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// timeOrZero maps SQL NULL back to the zero time on read.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
