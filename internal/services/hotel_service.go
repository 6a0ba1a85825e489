package services

import (
	"context"
	"errors"
	"strings"

	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/pkg/validator"
)

// HotelService manages the hotel registry that gates guest registration
type HotelService struct {
	repo *database.HotelRepository
}

// NewHotelService creates a new hotel service
func NewHotelService(repo *database.HotelRepository) *HotelService {
	return &HotelService{repo: repo}
}

// AddHotel registers a hotel. The code is stored lowercased and trimmed.
func (s *HotelService) AddHotel(ctx context.Context, code, name string) (*models.Hotel, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, invalid("Hotel code and name are required")
	}
	if !validator.IsValidHotelCode(code) {
		return nil, invalid("Hotel code can only contain lowercase letters, numbers, and hyphens")
	}

	exists, err := s.repo.CodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invalid("Hotel code already exists")
	}

	hotel, err := s.repo.Create(ctx, code, name)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, invalid("Hotel code already exists")
	}
	return hotel, err
}

// UpdateHotel renames a hotel
func (s *HotelService) UpdateHotel(ctx context.Context, code, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("Hotel name is required")
	}

	err := s.repo.UpdateName(ctx, code, name)
	if errors.Is(err, database.ErrNotFound) {
		return notFound("Hotel not found")
	}
	return err
}

// DeleteHotel soft-deletes a hotel. QR images on disk are kept.
func (s *HotelService) DeleteHotel(ctx context.Context, code string) error {
	err := s.repo.Deactivate(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return notFound("Hotel not found")
	}
	return err
}

// PredefinedHotels lists the active hotels by name
func (s *HotelService) PredefinedHotels(ctx context.Context) ([]*models.Hotel, error) {
	return s.repo.ListActive(ctx)
}

// GeneratedCodes lists the codes of active hotels with an issued QR code
func (s *HotelService) GeneratedCodes(ctx context.Context) ([]string, error) {
	hotels, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return generatedCodes(hotels), nil
}

func generatedCodes(hotels []*models.Hotel) []string {
	codes := []string{}
	for _, h := range hotels {
		if h.QRGenerated {
			codes = append(codes, h.Code)
		}
	}
	return codes
}

// Lookup returns the active hotel with the code, or nil
func (s *HotelService) Lookup(ctx context.Context, code string) (*models.Hotel, error) {
	return s.repo.GetActiveByCode(ctx, code)
}

// CheckCode reports whether a code is a known active hotel with a QR issued
func (s *HotelService) CheckCode(ctx context.Context, code string) (*models.HotelCodeStatus, error) {
	hotel, err := s.repo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	status := &models.HotelCodeStatus{
		HotelCode:   code,
		IsValid:     hotel != nil,
		IsGenerated: hotel != nil && hotel.QRGenerated,
	}
	switch {
	case status.IsGenerated:
		status.Message = "Code is valid and generated"
	case status.IsValid:
		status.Message = "Code is valid but not generated"
	default:
		status.Message = "Code is not valid"
	}
	return status, nil
}
