package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/config"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testRateLimits = config.RateLimitConfig{
	LoginMaxPerUsername: 5,
	LoginUsernameWindow: 15 * time.Minute,
	LoginMaxPerIP:       20,
	LoginIPWindow:       time.Hour,
	RegisterMaxPerIP:    30,
	RegisterIPWindow:    time.Hour,
}

var hotelColumns = []string{"id", "code", "name", "qr_generated", "last_qr_generated", "is_active", "created_at", "updated_at"}

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

func hotelRow(rows *sqlmock.Rows, id int, code, name string, generated bool) *sqlmock.Rows {
	now := time.Now()
	var last interface{}
	if generated {
		last = now
	}
	return rows.AddRow(id, code, name, generated, last, true, now, now)
}

// performJSON sends body (nil for none) as JSON and returns the recorder
func performJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func decodeArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
