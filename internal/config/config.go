package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultHotelCode is used when neither the form, the query string nor the
// environment names a hotel.
const DefaultHotelCode = "grandhotel"

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Registration RegistrationConfig
	Cleanup      CleanupConfig
	Admin        AdminConfig
	CORS         CORSConfig
	Security     SecurityConfig
	RateLimit    RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	BaseURL     string // public origin used in stored image URLs
	FrontendURL string // origin of the guest form encoded in QR codes
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// StorageConfig holds upload and QR image locations
type StorageConfig struct {
	ImagesDir        string
	QRCodesDir       string
	MaxUploadSize    int64 // bytes per file
	MaxIDFiles       int
	MaxIDFilesUpdate int
}

// RegistrationConfig holds guest registration defaults
type RegistrationConfig struct {
	DefaultHotelCode string
}

// CleanupConfig holds the upload retention sweep settings
type CleanupConfig struct {
	Enabled   bool
	Schedule  string // six-field cron expression (with seconds)
	Retention time.Duration
}

// AdminConfig holds the seeded admin credential
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// RateLimitConfig holds the attempt limits for login and guest registration.
// A limit of zero disables that check.
type RateLimitConfig struct {
	LoginMaxPerUsername int
	LoginUsernameWindow time.Duration
	LoginMaxPerIP       int
	LoginIPWindow       time.Duration
	RegisterMaxPerIP    int
	RegisterIPWindow    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := getEnv("PORT", "8080")

	config := &Config{
		Server: ServerConfig{
			Port:        port,
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
			FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", ""), "/"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Storage: StorageConfig{
			ImagesDir:        getEnv("IMAGES_DIR", "images"),
			QRCodesDir:       getEnv("QR_CODES_DIR", "qr-codes"),
			MaxUploadSize:    int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 5)) << 20,
			MaxIDFiles:       getEnvAsInt("MAX_ID_FILES", 5),
			MaxIDFilesUpdate: getEnvAsInt("MAX_ID_FILES_UPDATE", 10),
		},
		Registration: RegistrationConfig{
			DefaultHotelCode: getEnv("HOTEL_CODE", DefaultHotelCode),
		},
		Cleanup: CleanupConfig{
			Enabled:   getEnvAsBool("CLEANUP_ENABLED", true),
			Schedule:  getEnv("CLEANUP_SCHEDULE", "0 0 2 * * *"),
			Retention: time.Duration(getEnvAsInt("CLEANUP_RETENTION_DAYS", 7)) * 24 * time.Hour,
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		RateLimit: RateLimitConfig{
			LoginMaxPerUsername: getEnvAsInt("RATE_LIMIT_LOGIN_PER_USERNAME", 5),
			LoginUsernameWindow: time.Duration(getEnvAsInt("RATE_LIMIT_LOGIN_USERNAME_WINDOW", 900)) * time.Second,
			LoginMaxPerIP:       getEnvAsInt("RATE_LIMIT_LOGIN_PER_IP", 20),
			LoginIPWindow:       time.Duration(getEnvAsInt("RATE_LIMIT_LOGIN_IP_WINDOW", 3600)) * time.Second,
			RegisterMaxPerIP:    getEnvAsInt("RATE_LIMIT_REGISTER_PER_IP", 30),
			RegisterIPWindow:    time.Duration(getEnvAsInt("RATE_LIMIT_REGISTER_IP_WINDOW", 3600)) * time.Second,
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive")
	}

	if c.Cleanup.Retention <= 0 {
		return fmt.Errorf("CLEANUP_RETENTION_DAYS must be positive")
	}

	// A username without a hash (or the reverse) would seed an unusable account
	if (c.Admin.Username == "") != (c.Admin.PasswordHash == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
