package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepo is the refresh-token store.  Rows are keyed by the SHA-256 hash
// of the raw refresh token and are deleted, not flagged, when consumed.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// NewSession describes the row that replaces a consumed refresh session.
type NewSession struct {
	TokenHash string
	ExpiresAt time.Time
}

// StoreRefresh inserts a refresh session row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	if err != nil {
		return fmt.Errorf("insert refresh session: %w", err)
	}
	return nil
}

// Rotate consumes the session identified by tokenHash and, in the same
// transaction, stores the session returned by next.  The row is locked
// before it is deleted, so of two concurrent rotations of one token only
// the first sees it; the other gets ErrSessionNotFound.  An expired row is
// deleted and ErrSessionExpired is returned without calling next.
func (r *TokenRepo) Rotate(ctx context.Context, tokenHash string, now time.Time, next func(userID uint64) (NewSession, error)) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate: %w", err)
	}
	defer func() {
		if err != nil && !errors.Is(err, ErrSessionExpired) {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil && err == nil {
			err = fmt.Errorf("commit rotate: %w", cerr)
		}
	}()

	var (
		id        uint64
		userID    uint64
		expiresAt time.Time
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at FROM refresh_sessions WHERE token_hash=? LIMIT 1 FOR UPDATE",
		tokenHash).Scan(&id, &userID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("select refresh session: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE id=?", id); err != nil {
		return fmt.Errorf("delete refresh session: %w", err)
	}
	if !now.Before(expiresAt) {
		return ErrSessionExpired
	}

	ns, err := next(userID)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO refresh_sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, ns.TokenHash, ns.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("insert rotated session: %w", err)
	}
	return nil
}

// DeleteByHash removes the session if present.  Deleting a missing row is not an error.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE token_hash=?", tokenHash); err != nil {
		return fmt.Errorf("delete refresh session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose TTL elapsed before now.  It only
// reclaims storage; expiry is enforced when a token is presented.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
