package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guestdesk/registration-backend/internal/models"
)

// HotelRepository handles hotel database operations
type HotelRepository struct {
	db DB
}

// NewHotelRepository creates a new hotel repository
func NewHotelRepository(db DB) *HotelRepository {
	return &HotelRepository{db: db}
}

const hotelColumns = `id, code, name, qr_generated, last_qr_generated, is_active, created_at, updated_at`

// ListActive returns active hotels ordered by name
func (r *HotelRepository) ListActive(ctx context.Context) ([]*models.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE is_active = TRUE ORDER BY name`

	hotels := []*models.Hotel{}
	if err := r.db.SelectContext(ctx, &hotels, query); err != nil {
		return nil, fmt.Errorf("failed to list hotels: %w", err)
	}
	return hotels, nil
}

// GetActiveByCode returns the active hotel with the given code, or nil
func (r *HotelRepository) GetActiveByCode(ctx context.Context, code string) (*models.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE code = $1 AND is_active = TRUE`

	var hotel models.Hotel
	if err := r.db.GetContext(ctx, &hotel, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}
	return &hotel, nil
}

// CodeExists reports whether any hotel, active or not, uses the code
func (r *HotelRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowxContext(ctx, `SELECT EXISTS (SELECT 1 FROM hotels WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check hotel code: %w", err)
	}
	return exists, nil
}

// Create inserts a new active hotel without a QR code. A concurrent insert of
// the same code surfaces as ErrDuplicate.
func (r *HotelRepository) Create(ctx context.Context, code, name string) (*models.Hotel, error) {
	query := `
		INSERT INTO hotels (code, name, qr_generated, is_active, created_at, updated_at)
		VALUES ($1, $2, FALSE, TRUE, NOW(), NOW())
		RETURNING ` + hotelColumns

	var hotel models.Hotel
	if err := r.db.QueryRowxContext(ctx, query, code, name).StructScan(&hotel); err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create hotel: %w", err)
	}
	return &hotel, nil
}

// UpdateName renames a hotel, active or not
func (r *HotelRepository) UpdateName(ctx context.Context, code, name string) error {
	query := `UPDATE hotels SET name = $1, updated_at = NOW() WHERE code = $2`
	return r.execAffecting(ctx, "update hotel", query, name, code)
}

// Deactivate soft-deletes a hotel. Its QR image files are left in place.
func (r *HotelRepository) Deactivate(ctx context.Context, code string) error {
	query := `UPDATE hotels SET is_active = FALSE, updated_at = NOW() WHERE code = $1`
	return r.execAffecting(ctx, "deactivate hotel", query, code)
}

// SetQRGenerated records whether a QR code currently exists for the hotel.
// last_qr_generated is stamped when generated and cleared otherwise.
func (r *HotelRepository) SetQRGenerated(ctx context.Context, code string, generated bool) error {
	query := `
		UPDATE hotels
		SET qr_generated = $1,
		    last_qr_generated = CASE WHEN $1 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE code = $2
	`
	return r.execAffecting(ctx, "update QR status of hotel", query, generated, code)
}

func (r *HotelRepository) execAffecting(ctx context.Context, action, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
