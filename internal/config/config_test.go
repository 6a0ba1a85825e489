package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/guests?sslmode=disable")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "5713")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5713", cfg.Server.Port)
	assert.Equal(t, "http://localhost:5713", cfg.Server.BaseURL)
	assert.Equal(t, "", cfg.Server.FrontendURL)
	assert.Equal(t, DefaultHotelCode, cfg.Registration.DefaultHotelCode)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadSize)
	assert.Equal(t, 5, cfg.Storage.MaxIDFiles)
	assert.Equal(t, 10, cfg.Storage.MaxIDFilesUpdate)
	assert.Equal(t, "0 0 2 * * *", cfg.Cleanup.Schedule)
	assert.Equal(t, 7*24*time.Hour, cfg.Cleanup.Retention)
	assert.Equal(t, 5, cfg.RateLimit.LoginMaxPerUsername)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.LoginUsernameWindow)
	assert.Equal(t, 30, cfg.RateLimit.RegisterMaxPerIP)
	assert.Equal(t, time.Hour, cfg.RateLimit.RegisterIPWindow)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FRONTEND_URL", "https://checkin.example.com/")
	t.Setenv("BASE_URL", "https://api.example.com/")
	t.Setenv("HOTEL_CODE", "seaview")
	t.Setenv("CLEANUP_RETENTION_DAYS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("RATE_LIMIT_REGISTER_PER_IP", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://checkin.example.com", cfg.Server.FrontendURL)
	assert.Equal(t, "https://api.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "seaview", cfg.Registration.DefaultHotelCode)
	assert.Equal(t, 3*24*time.Hour, cfg.Cleanup.Retention)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 0, cfg.RateLimit.RegisterMaxPerIP)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	t.Run("Missing database URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("JWT_SECRET", "a")
		t.Setenv("JWT_REFRESH_SECRET", "b")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("Admin username without hash", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("ADMIN_USERNAME", "admin")
		t.Setenv("ADMIN_PASSWORD_HASH", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_USERNAME")
	})

	t.Run("Invalid integer falls back to default", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAX_ID_FILES", "many")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Storage.MaxIDFiles)
	})
}
