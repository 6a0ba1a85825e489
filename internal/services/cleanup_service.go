package services

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/guestdesk/registration-backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// CleanupResult summarizes one sweep of the uploads directory
type CleanupResult struct {
	FilesDeleted int  `json:"filesDeleted"`
	DirsRemoved  int  `json:"dirsRemoved"`
	Errors       int  `json:"errors"`
	DryRun       bool `json:"dryRun,omitempty"`
}

// CleanupService removes uploaded images older than the retention period and
// prunes the directories they leave empty.
type CleanupService struct {
	root      string
	retention time.Duration
	dryRun    bool
	logger    *logrus.Logger
}

// NewCleanupService creates a cleanup service for the images root
func NewCleanupService(root string, retention time.Duration, logger *logrus.Logger) *CleanupService {
	return &CleanupService{
		root:      root,
		retention: retention,
		logger:    logger,
	}
}

// WithDryRun makes sweeps report what they would remove without touching disk
func (s *CleanupService) WithDryRun(dryRun bool) *CleanupService {
	s.dryRun = dryRun
	return s
}

// Retention returns the configured file age limit
func (s *CleanupService) Retention() time.Duration {
	return s.retention
}

// Sweep deletes regular files last modified before now minus the retention,
// then removes directories left empty. The root itself is never removed.
// Failures on single entries are logged and counted; the sweep continues.
func (s *CleanupService) Sweep(now time.Time) CleanupResult {
	result := CleanupResult{DryRun: s.dryRun}
	cutoff := now.Add(-s.retention)

	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.WithField("dir", s.root).Info("Images directory does not exist, nothing to clean")
			return result
		}
		s.logger.WithError(err).WithField("dir", s.root).Error("Failed to stat images directory")
		result.Errors++
		return result
	}
	if !info.IsDir() {
		s.logger.WithField("dir", s.root).Error("Images path is not a directory")
		result.Errors++
		return result
	}

	s.sweepDir(s.root, cutoff, &result)

	if !s.dryRun {
		metrics.CleanupFilesDeleted.Add(float64(result.FilesDeleted))
	}
	metrics.CleanupErrors.Add(float64(result.Errors))

	s.logger.WithFields(logrus.Fields{
		"dir":           s.root,
		"cutoff":        cutoff.Format(time.RFC3339),
		"files_deleted": result.FilesDeleted,
		"dirs_removed":  result.DirsRemoved,
		"errors":        result.Errors,
		"dry_run":       s.dryRun,
	}).Info("Image cleanup finished")

	return result
}

// sweepDir reports whether dir holds nothing after its children were processed
func (s *CleanupService) sweepDir(dir string, cutoff time.Time, result *CleanupResult) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.WithError(err).WithField("dir", dir).Error("Failed to read directory")
		result.Errors++
		return false
	}

	remaining := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if !s.sweepDir(path, cutoff, result) {
				remaining++
				continue
			}
			if err := s.remove(path); err != nil {
				s.logger.WithError(err).WithField("dir", path).Error("Failed to remove empty directory")
				result.Errors++
				remaining++
				continue
			}
			result.DirsRemoved++
			continue
		}

		if !entry.Type().IsRegular() {
			remaining++
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.WithError(err).WithField("file", path).Error("Failed to stat file")
			result.Errors++
			remaining++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			remaining++
			continue
		}

		if err := s.remove(path); err != nil {
			s.logger.WithError(err).WithField("file", path).Error("Failed to delete file")
			result.Errors++
			remaining++
			continue
		}
		result.FilesDeleted++
		s.logger.WithField("file", path).Debug("Deleted expired image")
	}

	return remaining == 0
}

func (s *CleanupService) remove(path string) error {
	if s.dryRun {
		return nil
	}
	return os.Remove(path)
}
