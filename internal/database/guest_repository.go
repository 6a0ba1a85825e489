package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// Unique index names from schema.sql
const (
	guestMobileIndex = "users_mobile_no_key"
	guestEmailIndex  = "users_email_key"
)

// DuplicateGuestError is returned when another guest already holds the mobile
// number or email. It matches ErrDuplicate with errors.Is.
type DuplicateGuestError struct {
	Match models.DuplicateMatch
}

func (e *DuplicateGuestError) Error() string {
	var fields []string
	if e.Match.Mobile {
		fields = append(fields, "mobile_no")
	}
	if e.Match.Email {
		fields = append(fields, "email")
	}
	return fmt.Sprintf("duplicate guest: %s", strings.Join(fields, ", "))
}

// Is lets errors.Is(err, ErrDuplicate) match
func (e *DuplicateGuestError) Is(target error) bool {
	return target == ErrDuplicate
}

// duplicateFromConstraint converts a unique violation on the users indexes
func duplicateFromConstraint(err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	return &DuplicateGuestError{Match: models.DuplicateMatch{
		Mobile: constraint == guestMobileIndex,
		Email:  constraint == guestEmailIndex,
	}}
}

// AttachFunc runs inside the insert transaction once the guest id is known.
// It stores the uploaded images and returns their public URLs.
type AttachFunc func(guestID int64) (profileURL string, docs []models.GuestDocument, err error)

// UpdateFunc runs inside the update transaction after the guest row is locked
// and uniqueness has been checked. It returns the column changes and the full
// replacement document set.
type UpdateFunc func(current *models.Guest) (*models.GuestChanges, []models.GuestDocument, error)

type rowQuerier interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// GuestRepository handles guest (users / user_details) database operations
type GuestRepository struct {
	db DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db DB) *GuestRepository {
	return &GuestRepository{db: db}
}

const guestJoinQuery = `
	SELECT u.user_id, u.name, u.mobile_no, u.email, u.national_id AS nationality_id, u.hotel_code, u.created_date,
	       n.nationality_name AS nationality,
	       u.address AS address1_street, u.city_id AS address1_city_id, c1.city_name AS address1_city,
	       u.pincode AS address1_pincode,
	       u.off_address AS address2_street, u.off_city_id AS address2_city_id, c2.city_name AS address2_city,
	       u.off_pincode AS address2_pincode,
	       u.profile_img_path AS profile_photo,
	       ud.id_number, ud.id_img_path AS id_image, ud.id_proof AS proof_id, p.id_name AS proof_name
	FROM users u
	LEFT JOIN mas_nationality n ON u.national_id = n.nationality_id
	LEFT JOIN mas_city c1 ON u.city_id = c1.city_id
	LEFT JOIN mas_city c2 ON u.off_city_id = c2.city_id
	LEFT JOIN user_details ud ON u.user_id = ud.user_id
	LEFT JOIN mas_idproof p ON ud.id_proof = p.proof_id
`

// FindDuplicates reports whether another guest (other than excludeID) holds
// the mobile number or email. Mobile is compared trimmed, email trimmed and
// lowercased. Empty values are not checked.
func (r *GuestRepository) FindDuplicates(ctx context.Context, mobile, email string, excludeID int64) (models.DuplicateMatch, error) {
	return findDuplicates(ctx, r.db, mobile, email, excludeID)
}

func findDuplicates(ctx context.Context, q rowQuerier, mobile, email string, excludeID int64) (models.DuplicateMatch, error) {
	query := `
		SELECT COALESCE(BOOL_OR($1 <> '' AND TRIM(mobile_no) = $1), FALSE),
		       COALESCE(BOOL_OR($2 <> '' AND LOWER(TRIM(email)) = $2), FALSE)
		FROM users
		WHERE user_id <> $3
		  AND (($1 <> '' AND TRIM(mobile_no) = $1) OR ($2 <> '' AND LOWER(TRIM(email)) = $2))
	`

	var match models.DuplicateMatch
	mobile = strings.TrimSpace(mobile)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := q.QueryRowxContext(ctx, query, mobile, email, excludeID).Scan(&match.Mobile, &match.Email); err != nil {
		return match, fmt.Errorf("failed to check duplicate guest: %w", err)
	}
	return match, nil
}

// CountByField counts guests whose mobile_no or email equals value
func (r *GuestRepository) CountByField(ctx context.Context, field, value string) (int, error) {
	var query string
	switch field {
	case "mobile_no":
		query = `SELECT COUNT(*) FROM users WHERE TRIM(mobile_no) = TRIM($1)`
	case "email":
		query = `SELECT COUNT(*) FROM users WHERE LOWER(TRIM(email)) = LOWER(TRIM($1))`
	default:
		return 0, fmt.Errorf("unsupported duplicate field %q", field)
	}

	var count int
	if err := r.db.QueryRowxContext(ctx, query, value).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count guests by %s: %w", field, err)
	}
	return count, nil
}

// CreateWithDocuments inserts the guest, lets attach store the images, then
// records the profile URL and document rows, all in one transaction. Nothing
// is committed if attach fails.
func (r *GuestRepository) CreateWithDocuments(ctx context.Context, guest *models.Guest, attach AttachFunc) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO users (
			name, mobile_no, email, national_id, address, city_id, pincode,
			off_address, off_city_id, off_pincode, mac_id, hotel_code,
			created_date, created_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_DATE, LOCALTIME)
		RETURNING user_id
	`

	var guestID int64
	err = tx.QueryRowxContext(ctx, insertQuery,
		strings.TrimSpace(guest.Name),
		strings.TrimSpace(guest.MobileNo),
		strings.ToLower(strings.TrimSpace(guest.Email)),
		guest.NationalityID,
		guest.Address,
		guest.CityID,
		guest.Pincode,
		guest.OffAddress,
		guest.OffCityID,
		guest.OffPincode,
		guest.MacID,
		guest.HotelCode,
	).Scan(&guestID)
	if err != nil {
		if dup := duplicateFromConstraint(err); dup != nil {
			return 0, dup
		}
		return 0, fmt.Errorf("failed to insert guest: %w", err)
	}

	profileURL, docs, err := attach(guestID)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET profile_img_path = $1 WHERE user_id = $2`, profileURL, guestID); err != nil {
		return 0, fmt.Errorf("failed to set profile image: %w", err)
	}

	if err := insertDocuments(ctx, tx, guestID, docs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit guest registration: %w", err)
	}

	guest.ID = guestID
	guest.ProfileImage = models.NewNullString(profileURL)
	return guestID, nil
}

// UpdateWithDocuments locks the guest row, rejects a mobile/email held by
// another guest, applies the changes returned by build and replaces the whole
// document set.
func (r *GuestRepository) UpdateWithDocuments(ctx context.Context, guestID int64, mobile, email string, build UpdateFunc) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	currentQuery := `
		SELECT user_id, name, mobile_no, email, COALESCE(national_id, 0) AS national_id,
		       COALESCE(address, '') AS address, COALESCE(city_id, 0) AS city_id,
		       COALESCE(pincode, '') AS pincode, COALESCE(off_address, '') AS off_address,
		       COALESCE(off_city_id, 0) AS off_city_id, COALESCE(off_pincode, '') AS off_pincode,
		       mac_id, hotel_code, profile_img_path
		FROM users
		WHERE user_id = $1
		FOR UPDATE
	`

	var current models.Guest
	if err := tx.GetContext(ctx, &current, currentQuery, guestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load guest: %w", err)
	}

	match, err := findDuplicates(ctx, tx, mobile, email, guestID)
	if err != nil {
		return err
	}
	if match.Any() {
		return &DuplicateGuestError{Match: match}
	}

	changes, docs, err := build(&current)
	if err != nil {
		return err
	}

	if setClause, args := buildGuestUpdate(changes); setClause != "" {
		args = append(args, guestID)
		query := fmt.Sprintf(`UPDATE users SET %s WHERE user_id = $%d`, setClause, len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if dup := duplicateFromConstraint(err); dup != nil {
				return dup
			}
			return fmt.Errorf("failed to update guest: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_details WHERE user_id = $1`, guestID); err != nil {
		return fmt.Errorf("failed to clear guest documents: %w", err)
	}

	if err := insertDocuments(ctx, tx, guestID, docs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit guest update: %w", err)
	}
	return nil
}

// buildGuestUpdate renders the SET clause for the non-nil fields of changes,
// numbering placeholders from $1.
func buildGuestUpdate(changes *models.GuestChanges) (string, []interface{}) {
	if changes == nil {
		return "", nil
	}

	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Name != nil {
		add("name", strings.TrimSpace(*changes.Name))
	}
	if changes.MobileNo != nil {
		add("mobile_no", strings.TrimSpace(*changes.MobileNo))
	}
	if changes.Email != nil {
		add("email", strings.ToLower(strings.TrimSpace(*changes.Email)))
	}
	if changes.NationalityID != nil {
		add("national_id", *changes.NationalityID)
	}
	if changes.Address != nil {
		add("address", *changes.Address)
	}
	if changes.CityID != nil {
		add("city_id", *changes.CityID)
	}
	if changes.Pincode != nil {
		add("pincode", *changes.Pincode)
	}
	if changes.OffAddress != nil {
		add("off_address", *changes.OffAddress)
	}
	if changes.OffCityID != nil {
		add("off_city_id", *changes.OffCityID)
	}
	if changes.OffPincode != nil {
		add("off_pincode", *changes.OffPincode)
	}
	if changes.HotelCode != nil {
		add("hotel_code", *changes.HotelCode)
	}
	if changes.ProfileImage != nil {
		add("profile_img_path", *changes.ProfileImage)
	}

	return strings.Join(sets, ", "), args
}

func insertDocuments(ctx context.Context, tx *sqlx.Tx, guestID int64, docs []models.GuestDocument) error {
	query := `INSERT INTO user_details (user_id, id_proof, id_number, id_img_path) VALUES ($1, $2, $3, $4)`
	for i, doc := range docs {
		if _, err := tx.ExecContext(ctx, query, guestID, doc.ProofID, strings.TrimSpace(doc.Number), doc.ImageURL); err != nil {
			return fmt.Errorf("failed to insert guest document %d: %w", i, err)
		}
	}
	return nil
}

// Delete removes the guest and its documents in one transaction
func (r *GuestRepository) Delete(ctx context.Context, guestID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_details WHERE user_id = $1`, guestID); err != nil {
		return fmt.Errorf("failed to delete guest documents: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, guestID)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit guest deletion: %w", err)
	}
	return nil
}

// List returns every guest, optionally only those of one hotel, newest first
func (r *GuestRepository) List(ctx context.Context, hotelCode string) ([]models.GuestView, error) {
	query := guestJoinQuery
	var args []interface{}
	if hotelCode != "" {
		query += ` WHERE u.hotel_code = $1`
		args = append(args, hotelCode)
	}
	query += ` ORDER BY u.user_id DESC`

	rows := []models.GuestRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return groupGuestRows(rows), nil
}

// GetByID returns one guest with its documents, or ErrNotFound
func (r *GuestRepository) GetByID(ctx context.Context, guestID int64) (*models.GuestView, error) {
	rows := []models.GuestRow{}
	if err := r.db.SelectContext(ctx, &rows, guestJoinQuery+` WHERE u.user_id = $1`, guestID); err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}

	guests := groupGuestRows(rows)
	if len(guests) == 0 {
		return nil, ErrNotFound
	}
	return &guests[0], nil
}

// ListByHotel returns the guests of one hotel with their document counts
func (r *GuestRepository) ListByHotel(ctx context.Context, hotelCode string) ([]models.HotelGuestSummary, error) {
	query := `
		SELECT u.user_id, u.name, u.mobile_no, u.email, u.hotel_code, u.profile_img_path AS profile_photo,
		       COUNT(ud.user_id) AS id_document_count
		FROM users u
		LEFT JOIN user_details ud ON u.user_id = ud.user_id
		WHERE u.hotel_code = $1
		GROUP BY u.user_id, u.name, u.mobile_no, u.email, u.hotel_code, u.profile_img_path
		ORDER BY u.user_id DESC
	`

	guests := []models.HotelGuestSummary{}
	if err := r.db.SelectContext(ctx, &guests, query, hotelCode); err != nil {
		return nil, fmt.Errorf("failed to list guests by hotel: %w", err)
	}
	return guests, nil
}

// groupGuestRows folds the one-row-per-document join back into one view per
// guest, keeping row order. Documents repeating number and proof name are
// collapsed.
func groupGuestRows(rows []models.GuestRow) []models.GuestView {
	guests := make([]models.GuestView, 0)
	index := make(map[int64]int)
	seen := make(map[int64]map[string]bool)

	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			guests = append(guests, models.GuestView{
				UserID:        row.UserID,
				Name:          row.Name,
				MobileNo:      row.MobileNo,
				Email:         row.Email,
				Nationality:   row.Nationality,
				NationalityID: row.NationalityID,
				HotelCode:     row.HotelCode,
				CreatedDate:   row.CreatedDate.Format("2006-01-02"),
				Address1: models.GuestAddress{
					Street:  row.Address1Street,
					City:    row.Address1City,
					CityID:  row.Address1CityID,
					Pincode: row.Address1Pincode,
				},
				Address2: models.GuestAddress{
					Street:  row.Address2Street,
					City:    row.Address2City,
					CityID:  row.Address2CityID,
					Pincode: row.Address2Pincode,
				},
				ProfilePhoto: row.ProfilePhoto,
				IDDocuments:  []models.GuestDocumentView{},
			})
			i = len(guests) - 1
			index[row.UserID] = i
			seen[row.UserID] = make(map[string]bool)
		}

		if row.ProofName.String == "" || row.IDNumber.String == "" {
			continue
		}
		key := row.IDNumber.String + "\x00" + row.ProofName.String
		if seen[row.UserID][key] {
			continue
		}
		seen[row.UserID][key] = true

		guests[i].IDDocuments = append(guests[i].IDDocuments, models.GuestDocumentView{
			ProofName: row.ProofName.String,
			ProofID:   row.ProofID,
			Number:    row.IDNumber.String,
			Image:     row.IDImage,
		})
	}

	return guests
}
