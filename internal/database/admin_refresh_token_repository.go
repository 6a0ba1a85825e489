package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guestdesk/registration-backend/internal/models"
)

// AdminRefreshTokenRepository handles admin refresh token database operations
type AdminRefreshTokenRepository struct {
	db DB
}

// NewAdminRefreshTokenRepository creates a new admin refresh token repository
func NewAdminRefreshTokenRepository(db DB) *AdminRefreshTokenRepository {
	return &AdminRefreshTokenRepository{db: db}
}

// hashAdminToken creates a SHA-256 hash of the token for storage
func hashAdminToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Store saves the hash of a newly issued refresh token
func (r *AdminRefreshTokenRepository) Store(
	ctx context.Context,
	adminUserID uuid.UUID,
	token string,
	ipAddress, userAgent string,
	expiresAt time.Time,
) error {
	query := `
		INSERT INTO admin_refresh_tokens (admin_user_id, token_hash, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	var ipVal, userAgentVal interface{}
	if ipAddress != "" {
		ipVal = ipAddress
	}
	if userAgent != "" {
		userAgentVal = userAgent
	}

	if _, err := r.db.ExecContext(ctx, query, adminUserID, hashAdminToken(token), ipVal, userAgentVal, expiresAt); err != nil {
		return fmt.Errorf("failed to store admin refresh token: %w", err)
	}
	return nil
}

// Get returns the stored token matching the raw token, or nil when unknown
func (r *AdminRefreshTokenRepository) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, admin_user_id, token_hash, ip_address, user_agent, created_at,
		       expires_at, last_used_at, revoked, revoked_at
		FROM admin_refresh_tokens
		WHERE token_hash = $1
	`

	var refreshToken models.RefreshToken
	if err := r.db.GetContext(ctx, &refreshToken, query, hashAdminToken(token)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin refresh token: %w", err)
	}
	return &refreshToken, nil
}

// Revoke marks one token revoked. ErrNotFound when it is unknown or already revoked.
func (r *AdminRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	query := `
		UPDATE admin_refresh_tokens
		SET revoked = TRUE, revoked_at = $1
		WHERE token_hash = $2 AND revoked = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), hashAdminToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke admin token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAll revokes every active token of an admin user
func (r *AdminRefreshTokenRepository) RevokeAll(ctx context.Context, adminUserID uuid.UUID) error {
	query := `
		UPDATE admin_refresh_tokens
		SET revoked = TRUE, revoked_at = $1
		WHERE admin_user_id = $2 AND revoked = FALSE
	`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), adminUserID); err != nil {
		return fmt.Errorf("failed to revoke all admin user tokens: %w", err)
	}
	return nil
}

// TouchLastUsed stamps last_used_at on a token
func (r *AdminRefreshTokenRepository) TouchLastUsed(ctx context.Context, token string) error {
	query := `UPDATE admin_refresh_tokens SET last_used_at = $1 WHERE token_hash = $2`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), hashAdminToken(token)); err != nil {
		return fmt.Errorf("failed to update admin token last used timestamp: %w", err)
	}
	return nil
}

// DeleteStale removes tokens that expired, or were revoked, before cutoff
func (r *AdminRefreshTokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM admin_refresh_tokens
		WHERE expires_at < $1 OR (revoked = TRUE AND revoked_at < $1)
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup admin tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
