package repository

import (
	"context"
	"errors"
	"fmt"

	"vidnest/accounts/internal/security"
)

// ErrRefreshTokenMismatch means the stored refresh token is not the one the
// caller presented, either because it was rotated or cleared in between.
var ErrRefreshTokenMismatch = errors.New("refresh token mismatch")

// SessionRepository owns the single refresh token kept on each user row.
// Tokens are stored as their SHA-256 digest.
type SessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SetRefreshToken overwrites the stored token, or clears it when token is nil.
func (r *SessionRepository) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	var digest []byte
	if token != nil {
		digest = security.HashRefreshToken(*token)
	}

	const query = `UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, userID, digest)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken replaces current with next in one conditional UPDATE.
// Of two callers racing with the same current token exactly one wins; the
// other gets ErrRefreshTokenMismatch.
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, userID string, current string, next string) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $2
	`
	cmd, err := r.db.Exec(ctx, query, userID, security.HashRefreshToken(current), security.HashRefreshToken(next))
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenMismatch
	}
	return nil
}
