package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authcore"
)

// RefreshTokenStore defines a public type used by authcore APIs.
//
// RefreshTokenStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshTokenStore struct {
	store *Store
}

// RefreshTokens returns the refresh token store view of s.
func (s *Store) RefreshTokens() *RefreshTokenStore {
	return &RefreshTokenStore{store: s}
}

const refreshColumns = `id, session_id, user_id, token_hash, issued_at, expires_at, used_at, revoked_at, replaced_by`

// GetByHash describes the getbyhash operation and its observable behavior.
//
// GetByHash may return an error when input validation, dependency calls, or security checks fail.
// GetByHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *RefreshTokenStore) GetByHash(ctx context.Context, tokenHash string) (authcore.RefreshTokenRecord, error) {
	const op = "postgres.RefreshTokenStore.GetByHash"

	query := `SELECT ` + refreshColumns + ` FROM ` + refreshTokensTable + ` WHERE token_hash = $1`
	record, err := scanRefresh(r.store.pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authcore.RefreshTokenRecord{}, authcore.ErrRefreshInvalid
		}
		return authcore.RefreshTokenRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *RefreshTokenStore) Save(ctx context.Context, record authcore.RefreshTokenRecord) error {
	const op = "postgres.RefreshTokenStore.Save"

	if _, err := r.store.pool.Exec(ctx, insertRefreshSQL, insertRefreshArgs(record)...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Rotate consumes the old record and inserts its replacement in one
// transaction. The guarded UPDATE is the single-use gate: when another
// rotation already consumed the record, zero rows match and Rotate
// reports ok=false without writing anything.
func (r *RefreshTokenStore) Rotate(ctx context.Context, oldID string, usedAt time.Time, replacement authcore.RefreshTokenRecord) (bool, error) {
	const op = "postgres.RefreshTokenStore.Rotate"

	tx, err := r.store.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	consume := `UPDATE ` + refreshTokensTable + `
		SET used_at = $2, replaced_by = $3
		WHERE id = $1 AND used_at IS NULL AND revoked_at IS NULL`
	tag, err := tx.Exec(ctx, consume, oldID, usedAt, replacement.ID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, insertRefreshSQL, insertRefreshArgs(replacement)...); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// RevokeBySession describes the revokebysession operation and its observable behavior.
//
// RevokeBySession may return an error when input validation, dependency calls, or security checks fail.
// RevokeBySession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *RefreshTokenStore) RevokeBySession(ctx context.Context, sessionID string, at time.Time) error {
	const op = "postgres.RefreshTokenStore.RevokeBySession"

	query := `UPDATE ` + refreshTokensTable + `
		SET revoked_at = $2 WHERE session_id = $1 AND revoked_at IS NULL`
	if _, err := r.store.pool.Exec(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const insertRefreshSQL = `INSERT INTO ` + refreshTokensTable + ` (` + refreshColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func insertRefreshArgs(record authcore.RefreshTokenRecord) []any {
	return []any{
		record.ID,
		record.SessionID,
		record.UserID,
		record.TokenHash,
		record.IssuedAt,
		record.ExpiresAt,
		nullableTime(record.UsedAt),
		nullableTime(record.RevokedAt),
		record.ReplacedBy,
	}
}

func scanRefresh(row pgx.Row) (authcore.RefreshTokenRecord, error) {
	var (
		record    authcore.RefreshTokenRecord
		usedAt    *time.Time
		revokedAt *time.Time
	)
	err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.UserID,
		&record.TokenHash,
		&record.IssuedAt,
		&record.ExpiresAt,
		&usedAt,
		&revokedAt,
		&record.ReplacedBy,
	)
	if err != nil {
		return authcore.RefreshTokenRecord{}, err
	}
	record.UsedAt = timeOrZero(usedAt)
	record.RevokedAt = timeOrZero(revokedAt)
	return record, nil
}
