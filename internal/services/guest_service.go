package services

import (
	"context"
	"errors"
	"strings"

	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/models"
)

// GuestService reads and removes guest records for the admin screens
type GuestService struct {
	guests *database.GuestRepository
}

// NewGuestService creates a new guest service
func NewGuestService(guests *database.GuestRepository) *GuestService {
	return &GuestService{guests: guests}
}

// List returns every guest, or only those of hotelCode when set
func (s *GuestService) List(ctx context.Context, hotelCode string) ([]models.GuestView, error) {
	return s.guests.List(ctx, strings.TrimSpace(hotelCode))
}

// Get returns one guest with its documents
func (s *GuestService) Get(ctx context.Context, guestID int64) (*models.GuestView, error) {
	guest, err := s.guests.GetByID(ctx, guestID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("User not found")
	}
	return guest, err
}

// Delete removes a guest and its documents. Stored images are left for the
// retention sweep.
func (s *GuestService) Delete(ctx context.Context, guestID int64) error {
	err := s.guests.Delete(ctx, guestID)
	if errors.Is(err, database.ErrNotFound) {
		return notFound("User not found")
	}
	return err
}

// ListByHotel returns the guests of one hotel with their document counts
func (s *GuestService) ListByHotel(ctx context.Context, hotelCode string) ([]models.HotelGuestSummary, error) {
	return s.guests.ListByHotel(ctx, hotelCode)
}

// CheckDuplicate counts guests already holding value in field, which must be
// mobile_no or email.
func (s *GuestService) CheckDuplicate(ctx context.Context, field, value string) (int, error) {
	value = strings.TrimSpace(value)
	if field == "" || value == "" {
		return 0, invalid("Field and value are required")
	}
	if field != "mobile_no" && field != "email" {
		return 0, invalid("Invalid field")
	}
	return s.guests.CountByField(ctx, field, value)
}
