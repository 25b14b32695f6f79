package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const refreshTokenColumns = `id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent`

const insertRefreshToken = `INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
        VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`

func prepareRefreshToken(token *models.RefreshToken) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
}

// CreateRefreshToken persists a freshly issued refresh token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	prepareRefreshToken(token)
	if _, err := r.db.NamedExecContext(ctx, insertRefreshToken, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken looks a token up by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RotateRefreshToken spends usedID and stores next in one transaction. If usedID was already
// revoked, nothing is written and ErrTokenReused is returned.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, usedID string, next *models.RefreshToken) (err error) {
	prepareRefreshToken(next)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate refresh token: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`, usedID, next.CreatedAt)
	if err != nil {
		return fmt.Errorf("spend refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("spend refresh token: %w", err)
	}
	if affected == 0 {
		err = ErrTokenReused
		return err
	}
	if _, err = tx.NamedExecContext(ctx, insertRefreshToken, next); err != nil {
		return fmt.Errorf("store rotated refresh token: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate refresh token: %w", err)
	}
	return nil
}

// RevokeRefreshToken marks a single token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every live token of a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
