package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronService_InvalidSchedule(t *testing.T) {
	cleanup := NewCleanupService(t.TempDir(), time.Hour, quietLogger())
	service := NewCronService(cleanup, nil, nil, "every night", quietLogger())

	err := service.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule image cleanup job")
}

func TestCronService_StartStop(t *testing.T) {
	db, _ := newMockDB(t)
	cleanup := NewCleanupService(t.TempDir(), time.Hour, quietLogger())
	audit := NewAuditService(db, true, quietLogger())
	service := NewCronService(cleanup, database.NewAdminRefreshTokenRepository(db), audit, "0 0 2 * * *", quietLogger())

	require.NoError(t, service.Start())
	defer service.Stop()

	status := service.GetJobStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 3, status["job_count"])
}

func TestCronService_RunCleanupNow(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "grandhotel", "01.01.2024", "temp_user", "misc", "misc-1.png")
	writeAged(t, stale, time.Now().Add(-48*time.Hour))

	cleanup := NewCleanupService(root, 24*time.Hour, quietLogger())
	service := NewCronService(cleanup, nil, nil, "0 0 2 * * *", quietLogger())

	result := service.RunCleanupNow()
	assert.Equal(t, 1, result.FilesDeleted)
	assert.NoFileExists(t, stale)
}

func TestCronService_PurgeRefreshTokens(t *testing.T) {
	db, mock := newMockDB(t)
	cleanup := NewCleanupService(t.TempDir(), time.Hour, quietLogger())
	service := NewCronService(cleanup, database.NewAdminRefreshTokenRepository(db), nil, "0 0 2 * * *", quietLogger())

	mock.ExpectExec("DELETE FROM admin_refresh_tokens").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	service.purgeRefreshTokensJob()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCronService_PurgeAuditLogs(t *testing.T) {
	db, mock := newMockDB(t)
	cleanup := NewCleanupService(t.TempDir(), time.Hour, quietLogger())
	service := NewCronService(cleanup, nil, NewAuditService(db, true, quietLogger()), "0 0 2 * * *", quietLogger())

	mock.ExpectExec("DELETE FROM audit_logs").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	service.purgeAuditLogsJob()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCronService_PurgeAttempts(t *testing.T) {
	db, mock := newMockDB(t)
	cleanup := NewCleanupService(t.TempDir(), time.Hour, quietLogger())
	service := NewCronService(cleanup, nil, nil, "0 0 2 * * *", quietLogger()).
		WithRateLimits(NewRateLimitService(db, testRateLimitConfig()))

	mock.ExpectExec("DELETE FROM attempts WHERE created_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	service.purgeAttemptsJob()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCronService_StartWithRateLimits(t *testing.T) {
	db, _ := newMockDB(t)
	cleanup := NewCleanupService(t.TempDir(), time.Hour, quietLogger())
	service := NewCronService(cleanup, nil, nil, "0 0 2 * * *", quietLogger()).
		WithRateLimits(NewRateLimitService(db, testRateLimitConfig()))

	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Equal(t, 2, service.GetJobStatus()["job_count"])
}
