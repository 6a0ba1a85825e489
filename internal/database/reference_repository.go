package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/guestdesk/registration-backend/internal/models"
)

// ReferenceRepository handles one master lookup table (city, nationality or
// ID proof type). Identifiers come from a fixed ReferenceKind, never from input.
type ReferenceRepository struct {
	db   DB
	kind models.ReferenceKind
}

// NewReferenceRepository creates a repository for the given lookup table
func NewReferenceRepository(db DB, kind models.ReferenceKind) *ReferenceRepository {
	return &ReferenceRepository{db: db, kind: kind}
}

// Kind returns the table descriptor this repository serves
func (r *ReferenceRepository) Kind() models.ReferenceKind {
	return r.kind
}

func (r *ReferenceRepository) selectColumns() string {
	shortName := "''"
	if r.kind.HasShortName() {
		shortName = r.kind.ShortNameColumn
	}
	return fmt.Sprintf(`%s AS id, %s AS name, %s AS short_name, created_date,
		       TO_CHAR(created_time, 'HH24:MI:SS') AS created_time, (is_active = 1) AS is_active`,
		r.kind.IDColumn, r.kind.NameColumn, shortName)
}

// ListActive returns active rows, newest first
func (r *ReferenceRepository) ListActive(ctx context.Context) ([]models.ReferenceItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active = 1 ORDER BY %s DESC`,
		r.selectColumns(), r.kind.Table, r.kind.IDColumn)

	items := []models.ReferenceItem{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.kind.Table, err)
	}
	return items, nil
}

// ListAll returns every row, active rows first, then newest first
func (r *ReferenceRepository) ListAll(ctx context.Context) ([]models.ReferenceItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY is_active DESC, %s DESC`,
		r.selectColumns(), r.kind.Table, r.kind.IDColumn)

	items := []models.ReferenceItem{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.kind.Table, err)
	}
	return items, nil
}

// ListActiveByName returns active rows ordered alphabetically, for dropdowns
func (r *ReferenceRepository) ListActiveByName(ctx context.Context) ([]models.ReferenceItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active = 1 ORDER BY %s`,
		r.selectColumns(), r.kind.Table, r.kind.NameColumn)

	items := []models.ReferenceItem{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.kind.Table, err)
	}
	return items, nil
}

// GetByID returns one row regardless of its active flag
func (r *ReferenceRepository) GetByID(ctx context.Context, id int64) (*models.ReferenceItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.selectColumns(), r.kind.Table, r.kind.IDColumn)

	var item models.ReferenceItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s row: %w", r.kind.Table, err)
	}
	return &item, nil
}

// ActiveNameExists reports whether an active row other than excludeID already
// uses name. Comparison ignores case and surrounding whitespace. Pass
// excludeID 0 when adding.
func (r *ReferenceRepository) ActiveNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE LOWER(TRIM(%s)) = LOWER($1) AND is_active = 1 AND %s <> $2
		)`, r.kind.Table, r.kind.NameColumn, r.kind.IDColumn)

	var exists bool
	if err := r.db.QueryRowxContext(ctx, query, strings.TrimSpace(name), excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s name: %w", r.kind.Table, err)
	}
	return exists, nil
}

// Create inserts an active row stamped with the current date and time
func (r *ReferenceRepository) Create(ctx context.Context, name, shortName string) (int64, error) {
	var query string
	args := []interface{}{strings.TrimSpace(name)}

	if r.kind.HasShortName() {
		query = fmt.Sprintf(`
			INSERT INTO %s (%s, %s, created_date, created_time, is_active)
			VALUES ($1, $2, CURRENT_DATE, LOCALTIME, 1)
			RETURNING %s`, r.kind.Table, r.kind.NameColumn, r.kind.ShortNameColumn, r.kind.IDColumn)
		args = append(args, strings.TrimSpace(shortName))
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s (%s, created_date, created_time, is_active)
			VALUES ($1, CURRENT_DATE, LOCALTIME, 1)
			RETURNING %s`, r.kind.Table, r.kind.NameColumn, r.kind.IDColumn)
	}

	var id int64
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", r.kind.Table, err)
	}
	return id, nil
}

// Rename updates the name (and short name where the table has one)
func (r *ReferenceRepository) Rename(ctx context.Context, id int64, name, shortName string) error {
	var query string
	args := []interface{}{strings.TrimSpace(name)}

	if r.kind.HasShortName() {
		query = fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3`,
			r.kind.Table, r.kind.NameColumn, r.kind.ShortNameColumn, r.kind.IDColumn)
		args = append(args, strings.TrimSpace(shortName), id)
	} else {
		query = fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`,
			r.kind.Table, r.kind.NameColumn, r.kind.IDColumn)
		args = append(args, id)
	}

	return r.execAffecting(ctx, "update", query, args...)
}

// SetActive flips the soft-delete flag
func (r *ReferenceRepository) SetActive(ctx context.Context, id int64, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	query := fmt.Sprintf(`UPDATE %s SET is_active = $1 WHERE %s = $2`, r.kind.Table, r.kind.IDColumn)
	return r.execAffecting(ctx, "update status of", query, flag, id)
}

func (r *ReferenceRepository) execAffecting(ctx context.Context, verb, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", verb, r.kind.Table, err)
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
