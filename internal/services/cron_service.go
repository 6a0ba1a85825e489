package services

import (
	"context"
	"fmt"
	"time"

	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	// tokenPurgeSchedule runs the refresh token purge daily at 3:30 AM
	tokenPurgeSchedule = "0 30 3 * * *"

	// auditPurgeSchedule runs the audit log purge on Sundays at 4:00 AM
	auditPurgeSchedule = "0 0 4 * * 0"
	auditRetention     = 90 * 24 * time.Hour

	// attemptPurgeSchedule clears expired rate limit attempts every 15 minutes
	attemptPurgeSchedule = "0 */15 * * * *"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	cleanup  *CleanupService
	tokens   *database.AdminRefreshTokenRepository
	audit    *AuditService
	limits   *RateLimitService
	schedule string
	logger   *logrus.Logger
}

// NewCronService creates a new CronService. schedule is a six-field cron
// expression (with seconds) for the image cleanup job. tokens and audit may
// be nil, which leaves their purge jobs unscheduled.
func NewCronService(
	cleanup *CleanupService,
	tokens *database.AdminRefreshTokenRepository,
	audit *AuditService,
	schedule string,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:     cron.New(cron.WithSeconds()),
		cleanup:  cleanup,
		tokens:   tokens,
		audit:    audit,
		schedule: schedule,
		logger:   logger,
	}
}

// WithRateLimits adds the expired attempt purge to the scheduled jobs
func (s *CronService) WithRateLimits(limits *RateLimitService) *CronService {
	s.limits = limits
	return s
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if _, err := s.cron.AddFunc(s.schedule, s.cleanupImagesJob); err != nil {
		return fmt.Errorf("failed to schedule image cleanup job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: image cleanup")

	if s.tokens != nil {
		if _, err := s.cron.AddFunc(tokenPurgeSchedule, s.purgeRefreshTokensJob); err != nil {
			return fmt.Errorf("failed to schedule refresh token purge job: %w", err)
		}
		s.logger.WithField("schedule", tokenPurgeSchedule).Info("Scheduled: refresh token purge")
	}

	if s.audit != nil {
		if _, err := s.cron.AddFunc(auditPurgeSchedule, s.purgeAuditLogsJob); err != nil {
			return fmt.Errorf("failed to schedule audit log purge job: %w", err)
		}
		s.logger.WithField("schedule", auditPurgeSchedule).Info("Scheduled: audit log purge")
	}

	if s.limits != nil {
		if _, err := s.cron.AddFunc(attemptPurgeSchedule, s.purgeAttemptsJob); err != nil {
			return fmt.Errorf("failed to schedule attempt purge job: %w", err)
		}
		s.logger.WithField("schedule", attemptPurgeSchedule).Info("Scheduled: rate limit attempt purge")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// cleanupImagesJob removes uploads older than the retention period
func (s *CronService) cleanupImagesJob() {
	s.logger.Info("[CRON] Starting image cleanup job...")
	startTime := time.Now()

	result := s.cleanup.Sweep(startTime)

	s.logger.WithFields(logrus.Fields{
		"files_deleted": result.FilesDeleted,
		"dirs_removed":  result.DirsRemoved,
		"errors":        result.Errors,
		"duration":      time.Since(startTime).String(),
	}).Info("[CRON] Image cleanup finished")
}

// purgeRefreshTokensJob deletes admin refresh tokens that expired or were
// revoked more than a day ago
func (s *CronService) purgeRefreshTokensJob() {
	s.logger.Info("[CRON] Starting refresh token purge job...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.tokens.DeleteStale(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to purge refresh tokens")
		return
	}
	s.logger.WithField("deleted", deleted).Info("[CRON] Refresh token purge finished")
}

// purgeAuditLogsJob deletes audit logs older than 90 days
func (s *CronService) purgeAuditLogsJob() {
	s.logger.Info("[CRON] Starting audit log purge job...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.audit.CleanupOldAuditLogs(ctx, auditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to purge audit logs")
		return
	}
	s.logger.WithField("deleted", deleted).Info("[CRON] Audit log purge finished")
}

// purgeAttemptsJob deletes rate limit attempts outside every window
func (s *CronService) purgeAttemptsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.limits.CleanupExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to purge rate limit attempts")
		return
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("[CRON] Rate limit attempt purge finished")
	}
}

// RunCleanupNow runs the image cleanup immediately
func (s *CronService) RunCleanupNow() CleanupResult {
	s.logger.Info("[MANUAL] Running image cleanup now...")
	return s.cleanup.Sweep(time.Now())
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
