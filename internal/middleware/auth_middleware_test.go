package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/guestdesk/registration-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Hour,
		24*time.Hour,
	)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupProtectedRouter(jwtService *jwt.Service, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlers := []gin.HandlerFunc{AuthMiddleware(jwtService, quietLogger())}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		adminCtx, exists := GetAdminContext(c)
		if !exists {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "success",
			"username": adminCtx.Username,
		})
	})

	router.GET("/protected", handlers...)
	return router
}

func performAuthRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func responseCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupProtectedRouter(jwtService, "admin")

	token, err := jwtService.GenerateAccessToken(uuid.New(), "frontdesk", []string{"admin"})
	require.NoError(t, err)

	w := performAuthRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "frontdesk")
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupProtectedRouter(jwtService)

	refresh, err := jwtService.GenerateRefreshToken(uuid.New(), "frontdesk")
	require.NoError(t, err)

	expiredService := jwt.NewService("test-access-secret-key-123456789", "x", -time.Minute, time.Hour)
	expired, err := expiredService.GenerateAccessToken(uuid.New(), "frontdesk", []string{"admin"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"Missing Header", "", "MISSING_AUTH_HEADER"},
		{"Wrong Scheme", "Basic abc123", "INVALID_AUTH_FORMAT"},
		{"Empty Token", "Bearer   ", "INVALID_AUTH_FORMAT"},
		{"Garbage Token", "Bearer not.a.token", "INVALID_TOKEN"},
		{"Refresh Token", "Bearer " + refresh, "INVALID_TOKEN"},
		{"Expired Token", "Bearer " + expired, "TOKEN_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performAuthRequest(router, tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, responseCode(t, w))
		})
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupProtectedRouter(jwtService, "admin")

	token, err := jwtService.GenerateAccessToken(uuid.New(), "viewer", []string{"auditor"})
	require.NoError(t, err)

	w := performAuthRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", responseCode(t, w))
}

func TestRequireRole_AnyOfRoles(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupProtectedRouter(jwtService, "admin", "auditor")

	token, err := jwtService.GenerateAccessToken(uuid.New(), "viewer", []string{"auditor"})
	require.NoError(t, err)

	w := performAuthRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewer")
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performAuthRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_ADMIN_CONTEXT", responseCode(t, w))
}
