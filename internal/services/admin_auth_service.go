package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminRole is the role carried by every admin access token
const AdminRole = "admin"

// AdminAuthService handles admin authentication business logic
type AdminAuthService struct {
	adminRepo        *database.AdminUserRepository
	refreshTokenRepo *database.AdminRefreshTokenRepository
	jwtService       *jwt.Service
	logger           *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(
	adminRepo *database.AdminUserRepository,
	refreshTokenRepo *database.AdminRefreshTokenRepository,
	jwtService *jwt.Service,
	logger *logrus.Logger,
) *AdminAuthService {
	return &AdminAuthService{
		adminRepo:        adminRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtService:       jwtService,
		logger:           logger,
	}
}

// Login checks the credential and issues an access and refresh token pair.
// The returned admin is set even when the login fails on password or status,
// so callers can audit the attempt.
func (s *AdminAuthService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*models.AdminLoginResponse, *models.AdminUser, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, err
	}
	if admin == nil {
		return nil, nil, unauthorized("Invalid username")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, admin, unauthorized("Invalid password")
	}

	if !admin.IsActive {
		return nil, admin, unauthorized("Account is inactive")
	}

	accessToken, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Username, []string{AdminRole})
	if err != nil {
		return nil, admin, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(admin.ID, admin.Username)
	if err != nil {
		return nil, admin, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.jwtService.RefreshTokenExpiry())
	if err := s.refreshTokenRepo.Store(ctx, admin.ID, refreshToken, ipAddress, userAgent, expiresAt); err != nil {
		return nil, admin, err
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID); err != nil {
		s.logger.WithError(err).WithField("admin_id", admin.ID).Warn("Failed to update last login")
	}

	return &models.AdminLoginResponse{
		Message:      "Login successful",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Admin:        admin,
	}, admin, nil
}

// RefreshToken issues a new access token for a stored, unrevoked refresh token
func (s *AdminAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AdminLoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorized("Refresh token has expired")
		}
		return nil, unauthorized("Invalid refresh token")
	}

	storedToken, err := s.refreshTokenRepo.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if storedToken == nil {
		return nil, unauthorized("Invalid refresh token")
	}
	if storedToken.Revoked {
		return nil, unauthorized("Refresh token has been revoked")
	}
	if time.Now().After(storedToken.ExpiresAt) {
		return nil, unauthorized("Refresh token has expired")
	}

	admin, err := s.adminRepo.GetByID(ctx, claims.AdminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, unauthorized("Admin user not found")
	}
	if !admin.IsActive {
		return nil, unauthorized("Account is inactive")
	}

	accessToken, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Username, []string{AdminRole})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.refreshTokenRepo.TouchLastUsed(ctx, refreshToken); err != nil {
		s.logger.WithError(err).Warn("Failed to update refresh token last used")
	}

	return &models.AdminLoginResponse{
		Message:      "Token refreshed successfully",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Admin:        admin,
	}, nil
}

// Logout revokes the refresh token. Unknown or already revoked tokens are not
// an error.
func (s *AdminAuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	return nil
}

// LogoutAll revokes every refresh token of the admin
func (s *AdminAuthService) LogoutAll(ctx context.Context, adminID uuid.UUID) error {
	return s.refreshTokenRepo.RevokeAll(ctx, adminID)
}

// GetAdminProfile retrieves the admin user behind an access token
func (s *AdminAuthService) GetAdminProfile(ctx context.Context, adminID uuid.UUID) (*models.AdminUser, error) {
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, notFound("Admin user not found")
	}
	return admin, nil
}

// SeedAdmin creates or resets the configured administrator. passwordHash must
// be a bcrypt hash.
func (s *AdminAuthService) SeedAdmin(ctx context.Context, username, passwordHash string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return nil, invalid("Admin username and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, invalid("Admin password hash is not a bcrypt hash")
	}

	admin, err := s.adminRepo.Upsert(ctx, username, passwordHash)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("username", admin.Username).Info("Admin user seeded")
	return admin, nil
}
