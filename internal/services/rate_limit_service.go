package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guestdesk/registration-backend/internal/config"
	"github.com/guestdesk/registration-backend/internal/database"
)

// Attempt actions and identifier types stored in the attempts table
const (
	AttemptLogin    = "login"
	AttemptRegister = "register"

	IdentifierUsername = "username"
	IdentifierIP       = "ip"
)

// RateLimitService counts recent login failures and guest registrations in
// the attempts table. A nil service allows everything.
type RateLimitService struct {
	db     database.DB
	config config.RateLimitConfig
	now    func() time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, cfg config.RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "username" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

type limitRule struct {
	identifier     string
	identifierType string
	max            int
	window         time.Duration
	message        string
}

// CheckLogin refuses a login once the username or the client IP has too many
// recent failures
func (s *RateLimitService) CheckLogin(ctx context.Context, username, ip string) error {
	if s == nil {
		return nil
	}
	return s.check(ctx, AttemptLogin,
		limitRule{username, IdentifierUsername, s.config.LoginMaxPerUsername, s.config.LoginUsernameWindow,
			"Too many failed login attempts for this account"},
		limitRule{ip, IdentifierIP, s.config.LoginMaxPerIP, s.config.LoginIPWindow,
			"Too many failed login attempts from this IP address"},
	)
}

// RecordLoginFailure counts one failed login against the username and IP
func (s *RateLimitService) RecordLoginFailure(ctx context.Context, username, ip string) error {
	if s == nil {
		return nil
	}
	if err := s.record(ctx, AttemptLogin, username, IdentifierUsername); err != nil {
		return fmt.Errorf("failed to record username attempt: %w", err)
	}
	if err := s.record(ctx, AttemptLogin, ip, IdentifierIP); err != nil {
		return fmt.Errorf("failed to record IP attempt: %w", err)
	}
	return nil
}

// ClearLogin forgets the failures of a username after a successful login
func (s *RateLimitService) ClearLogin(ctx context.Context, username string) error {
	if s == nil || username == "" {
		return nil
	}
	query := `DELETE FROM attempts WHERE action = $1 AND identifier = $2 AND identifier_type = $3`
	if _, err := s.db.ExecContext(ctx, query, AttemptLogin, username, IdentifierUsername); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// CheckRegistration refuses a registration once the client IP has submitted
// too many forms recently
func (s *RateLimitService) CheckRegistration(ctx context.Context, ip string) error {
	if s == nil {
		return nil
	}
	return s.check(ctx, AttemptRegister,
		limitRule{ip, IdentifierIP, s.config.RegisterMaxPerIP, s.config.RegisterIPWindow,
			"Too many registrations from this IP address"},
	)
}

// RecordRegistration counts one submitted registration form against the IP
func (s *RateLimitService) RecordRegistration(ctx context.Context, ip string) error {
	if s == nil {
		return nil
	}
	if err := s.record(ctx, AttemptRegister, ip, IdentifierIP); err != nil {
		return fmt.Errorf("failed to record registration attempt: %w", err)
	}
	return nil
}

func (s *RateLimitService) check(ctx context.Context, action string, rules ...limitRule) error {
	for _, rule := range rules {
		if rule.identifier == "" || rule.max <= 0 {
			continue
		}

		count, lastAttempt, err := s.getAttemptCount(ctx, action, rule.identifier, rule.identifierType, rule.window)
		if err != nil {
			return fmt.Errorf("failed to check %s rate limit: %w", rule.identifierType, err)
		}

		if count >= rule.max {
			retryAfter := lastAttempt.Add(rule.window)
			return &RateLimitError{
				Message:    fmt.Sprintf("%s. Please try again after %s", rule.message, retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       rule.identifierType,
			}
		}
	}
	return nil
}

// getAttemptCount gets the number of attempts within the time window and the
// time of the latest one
func (s *RateLimitService) getAttemptCount(ctx context.Context, action, identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := s.now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM attempts
		WHERE action = $1
		  AND identifier = $2
		  AND identifier_type = $3
		  AND created_at > $4
	`

	var count int
	var lastAttempt time.Time

	err := s.db.QueryRowxContext(ctx, query, action, identifier, identifierType, windowStart).Scan(&count, &lastAttempt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, err
	}

	return count, lastAttempt, nil
}

func (s *RateLimitService) record(ctx context.Context, action, identifier, identifierType string) error {
	if identifier == "" {
		return nil
	}
	query := `
		INSERT INTO attempts (action, identifier, identifier_type, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err := s.db.ExecContext(ctx, query, action, identifier, identifierType)
	return err
}

// CleanupExpired removes attempts older than the longest configured window
func (s *RateLimitService) CleanupExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}

	maxWindow := s.config.LoginUsernameWindow
	for _, window := range []time.Duration{s.config.LoginIPWindow, s.config.RegisterIPWindow} {
		if window > maxWindow {
			maxWindow = window
		}
	}

	cutoffTime := s.now().Add(-maxWindow)

	result, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
