package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/models"
)

// ReferenceService implements add/view/update/soft-delete/activate for one
// master lookup table.
type ReferenceService struct {
	repo *database.ReferenceRepository
}

// NewReferenceService creates a new reference data service
func NewReferenceService(repo *database.ReferenceRepository) *ReferenceService {
	return &ReferenceService{repo: repo}
}

// Kind returns the lookup table this service manages
func (s *ReferenceService) Kind() models.ReferenceKind {
	return s.repo.Kind()
}

func (s *ReferenceService) requireFields(name, shortName string) error {
	kind := s.repo.Kind()
	if kind.HasShortName() {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(shortName) == "" {
			return invalid("ID Name and Short Name are required")
		}
		return nil
	}
	if strings.TrimSpace(name) == "" {
		return invalid("%s name required", kind.Entity)
	}
	return nil
}

// Add inserts a new active row. An active row with the same name is a conflict.
func (s *ReferenceService) Add(ctx context.Context, name, shortName string) (int64, error) {
	if err := s.requireFields(name, shortName); err != nil {
		return 0, err
	}

	exists, err := s.repo.ActiveNameExists(ctx, name, 0)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, conflict("%s already exists", s.repo.Kind().Entity)
	}

	return s.repo.Create(ctx, name, shortName)
}

// ViewActive lists active rows, newest first
func (s *ReferenceService) ViewActive(ctx context.Context) ([]models.ReferenceItem, error) {
	return s.repo.ListActive(ctx)
}

// ViewAll lists every row, active first then newest
func (s *ReferenceService) ViewAll(ctx context.Context) ([]models.ReferenceItem, error) {
	return s.repo.ListAll(ctx)
}

// Options lists active rows by name for form dropdowns
func (s *ReferenceService) Options(ctx context.Context) ([]models.ReferenceItem, error) {
	return s.repo.ListActiveByName(ctx)
}

// Update renames a row. Another active row holding the name is a conflict.
func (s *ReferenceService) Update(ctx context.Context, id int64, name, shortName string) error {
	if err := s.requireFields(name, shortName); err != nil {
		return err
	}

	exists, err := s.repo.ActiveNameExists(ctx, name, id)
	if err != nil {
		return err
	}
	if exists {
		return conflict("%s name already exists", s.repo.Kind().Entity)
	}

	return s.mapNotFound(s.repo.Rename(ctx, id, name, shortName))
}

// SoftDelete marks a row inactive
func (s *ReferenceService) SoftDelete(ctx context.Context, id int64) error {
	return s.mapNotFound(s.repo.SetActive(ctx, id, false))
}

// Activate marks a row active again. It is refused while another active row
// holds the same name.
func (s *ReferenceService) Activate(ctx context.Context, id int64) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.mapNotFound(err)
	}

	exists, err := s.repo.ActiveNameExists(ctx, item.Name, id)
	if err != nil {
		return err
	}
	if exists {
		return conflict("%s name already exists", s.repo.Kind().Entity)
	}

	return s.mapNotFound(s.repo.SetActive(ctx, id, true))
}

func (s *ReferenceService) mapNotFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound("%s not found", s.repo.Kind().Entity)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(s.repo.Kind().Entity), err)
	}
	return nil
}
