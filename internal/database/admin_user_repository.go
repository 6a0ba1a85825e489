package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guestdesk/registration-backend/internal/models"
)

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

const adminUserColumns = `id, username, password_hash, is_active, last_login_at, created_at, updated_at`

// GetByUsername retrieves an admin user by username, or nil when unknown
func (r *AdminUserRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return r.getOne(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE username = $1`, username)
}

// GetByID retrieves an admin user by ID, or nil when unknown
func (r *AdminUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	return r.getOne(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id = $1`, id)
}

func (r *AdminUserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := r.db.GetContext(ctx, &admin, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

// Upsert creates the admin user or resets its password hash and reactivates it.
// Used to seed the configured administrator at start-up.
func (r *AdminUserRepository) Upsert(ctx context.Context, username, passwordHash string) (*models.AdminUser, error) {
	query := `
		INSERT INTO admin_users (id, username, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, is_active = TRUE, updated_at = NOW()
		RETURNING ` + adminUserColumns

	var admin models.AdminUser
	if err := r.db.QueryRowxContext(ctx, query, uuid.New(), username, passwordHash).StructScan(&admin); err != nil {
		return nil, fmt.Errorf("failed to upsert admin user: %w", err)
	}
	return &admin, nil
}

// UpdateLastLogin updates the last login timestamp
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE admin_users SET last_login_at = $1, updated_at = $1 WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
