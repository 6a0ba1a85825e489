package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUserUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminUserRepository(db)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`ON CONFLICT \(username\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "frontdesk", "$2a$10$hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_active", "last_login_at", "created_at", "updated_at"}).
			AddRow(id, "frontdesk", "$2a$10$hash", true, nil, now, now))

	admin, err := repo.Upsert(t.Context(), "frontdesk", "$2a$10$hash")
	require.NoError(t, err)
	assert.Equal(t, id, admin.ID)
	assert.True(t, admin.IsActive)
	assert.False(t, admin.LastLoginAt.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUserGetByUsername_Unknown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminUserRepository(db)

	mock.ExpectQuery(`FROM admin_users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	admin, err := repo.GetByUsername(t.Context(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, admin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRefreshTokenStore_HashesToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRefreshTokenRepository(db)
	adminID := uuid.New()
	expires := time.Now().Add(time.Hour)

	mock.ExpectExec(`INSERT INTO admin_refresh_tokens`).
		WithArgs(adminID, hashAdminToken("raw-token"), "10.0.0.1", nil, expires).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Store(t.Context(), adminID, "raw-token", "10.0.0.1", "", expires))
	assert.NotEqual(t, "raw-token", hashAdminToken("raw-token"))
	assert.Len(t, hashAdminToken("raw-token"), 64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRefreshTokenRevoke(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRefreshTokenRepository(db)

	mock.ExpectExec(`SET revoked = TRUE`).
		WithArgs(sqlmock.AnyArg(), hashAdminToken("live")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET revoked = TRUE`).
		WithArgs(sqlmock.AnyArg(), hashAdminToken("gone")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Revoke(t.Context(), "live"))
	assert.ErrorIs(t, repo.Revoke(t.Context(), "gone"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRefreshTokenDeleteStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRefreshTokenRepository(db)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec(`DELETE FROM admin_refresh_tokens`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteStale(t.Context(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(t.Context(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
