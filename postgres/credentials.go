package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/authcore"
)

const uniqueViolation = "23505"

// CredentialStore defines a public type used by authcore APIs.
//
// CredentialStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CredentialStore struct {
	store *Store
}

// Credentials returns the credential store view of s.
func (s *Store) Credentials() *CredentialStore {
	return &CredentialStore{store: s}
}

// GetByIdentifier describes the getbyidentifier operation and its observable behavior.
//
// GetByIdentifier may return an error when input validation, dependency calls, or security checks fail.
// GetByIdentifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *CredentialStore) GetByIdentifier(ctx context.Context, identifier string) (authcore.CredentialRecord, error) {
	const op = "postgres.CredentialStore.GetByIdentifier"

	query := `SELECT user_id, identifier, password_hash, failed_attempts, locked_until, created_at, updated_at
		FROM ` + credentialsTable + ` WHERE identifier = $1`
	return c.scanOne(ctx, op, query, identifier)
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *CredentialStore) GetByID(ctx context.Context, userID string) (authcore.CredentialRecord, error) {
	const op = "postgres.CredentialStore.GetByID"

	query := `SELECT user_id, identifier, password_hash, failed_attempts, locked_until, created_at, updated_at
		FROM ` + credentialsTable + ` WHERE user_id = $1`
	return c.scanOne(ctx, op, query, userID)
}

func (c *CredentialStore) scanOne(ctx context.Context, op, query string, arg any) (authcore.CredentialRecord, error) {
	var (
		record      authcore.CredentialRecord
		lockedUntil *time.Time
	)
	err := c.store.pool.QueryRow(ctx, query, arg).Scan(
		&record.UserID,
		&record.Identifier,
		&record.PasswordHash,
		&record.FailedAttempts,
		&lockedUntil,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authcore.CredentialRecord{}, authcore.ErrUserNotFound
		}
		return authcore.CredentialRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	record.LockedUntil = timeOrZero(lockedUntil)
	return record, nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *CredentialStore) Create(ctx context.Context, record authcore.CredentialRecord) error {
	const op = "postgres.CredentialStore.Create"

	query := `INSERT INTO ` + credentialsTable + `
		(user_id, identifier, password_hash, failed_attempts, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := c.store.pool.Exec(ctx, query,
		record.UserID,
		record.Identifier,
		record.PasswordHash,
		record.FailedAttempts,
		nullableTime(record.LockedUntil),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return authcore.ErrAccountExists
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *CredentialStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	const op = "postgres.CredentialStore.UpdatePasswordHash"

	query := `UPDATE ` + credentialsTable + `
		SET password_hash = $2, failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE user_id = $1`
	tag, err := c.store.pool.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// RecordFailure increments the failed-attempt counter and arms the lock in
// the same statement when the new count reaches the threshold. Concurrent
// failures therefore cannot lose increments or skip the lock.
func (c *CredentialStore) RecordFailure(ctx context.Context, userID string, at time.Time, threshold int, lockFor time.Duration) (bool, error) {
	const op = "postgres.CredentialStore.RecordFailure"

	query := `UPDATE ` + credentialsTable + `
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE WHEN failed_attempts + 1 >= $3 THEN $4 ELSE locked_until END,
		    updated_at = $2
		WHERE user_id = $1
		RETURNING failed_attempts >= $3`
	var locked bool
	err := c.store.pool.QueryRow(ctx, query, userID, at, threshold, at.Add(lockFor)).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, authcore.ErrUserNotFound
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return locked, nil
}

// ClearFailures describes the clearfailures operation and its observable behavior.
//
// ClearFailures may return an error when input validation, dependency calls, or security checks fail.
// ClearFailures does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *CredentialStore) ClearFailures(ctx context.Context, userID string) error {
	const op = "postgres.CredentialStore.ClearFailures"

	query := `UPDATE ` + credentialsTable + `
		SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE user_id = $1`
	tag, err := c.store.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}
