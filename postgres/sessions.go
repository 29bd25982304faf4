package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authcore"
)

// SessionStore defines a public type used by authcore APIs.
//
// SessionStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionStore struct {
	store *Store
}

// Sessions returns the session store view of s.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{store: s}
}

const sessionColumns = `session_id, user_id, ip, user_agent, remember_me, created_at, last_used_at, expires_at, revoked_at`

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (authcore.SessionRecord, error) {
	const op = "postgres.SessionStore.Get"

	query := `SELECT ` + sessionColumns + ` FROM ` + sessionsTable + ` WHERE session_id = $1`
	record, err := scanSession(s.store.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authcore.SessionRecord{}, authcore.ErrSessionNotFound
		}
		return authcore.SessionRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

// ListByUser describes the listbyuser operation and its observable behavior.
//
// ListByUser may return an error when input validation, dependency calls, or security checks fail.
// ListByUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]authcore.SessionRecord, error) {
	const op = "postgres.SessionStore.ListByUser"

	query := `SELECT ` + sessionColumns + ` FROM ` + sessionsTable + `
		WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.store.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []authcore.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SessionStore) Save(ctx context.Context, record authcore.SessionRecord) error {
	const op = "postgres.SessionStore.Save"

	query := `INSERT INTO ` + sessionsTable + ` (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			last_used_at = EXCLUDED.last_used_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = EXCLUDED.revoked_at`
	_, err := s.store.pool.Exec(ctx, query,
		record.SessionID,
		record.UserID,
		record.IP,
		record.UserAgent,
		record.RememberMe,
		record.CreatedAt,
		record.LastUsedAt,
		record.ExpiresAt,
		nullableTime(record.RevokedAt),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Revoke describes the revoke operation and its observable behavior.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string, at time.Time) error {
	const op = "postgres.SessionStore.Revoke"

	query := `UPDATE ` + sessionsTable + `
		SET revoked_at = $2 WHERE session_id = $1 AND revoked_at IS NULL`
	tag, err := s.store.pool.Exec(ctx, query, sessionID, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		// Already revoked or missing. Check which so callers can tell.
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM ` + sessionsTable + ` WHERE session_id = $1)`
		if err := s.store.pool.QueryRow(ctx, check, sessionID).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return authcore.ErrSessionNotFound
		}
	}
	return nil
}

// Touch describes the touch operation and its observable behavior.
//
// Touch may return an error when input validation, dependency calls, or security checks fail.
// Touch does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SessionStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	const op = "postgres.SessionStore.Touch"

	query := `UPDATE ` + sessionsTable + ` SET last_used_at = $2 WHERE session_id = $1`
	tag, err := s.store.pool.Exec(ctx, query, sessionID, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (authcore.SessionRecord, error) {
	var (
		record    authcore.SessionRecord
		revokedAt *time.Time
	)
	err := row.Scan(
		&record.SessionID,
		&record.UserID,
		&record.IP,
		&record.UserAgent,
		&record.RememberMe,
		&record.CreatedAt,
		&record.LastUsedAt,
		&record.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		return authcore.SessionRecord{}, err
	}
	record.RevokedAt = timeOrZero(revokedAt)
	return record, nil
}
