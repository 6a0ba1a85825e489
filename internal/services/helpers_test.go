package services

import (
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*database.PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// requireServiceError asserts err is a *Error of the given kind and message
func requireServiceError(t *testing.T, err error, kind error, message string) *Error {
	t.Helper()

	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)

	var svcErr *Error
	require.True(t, errors.As(err, &svcErr))
	require.Equal(t, message, svcErr.Message)
	return svcErr
}
