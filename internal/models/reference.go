package models

import "time"

// ReferenceKind describes one of the master lookup tables. The three tables
// share a shape and differ only in names, so one repository serves all of them.
type ReferenceKind struct {
	Entity          string // display name used in messages, e.g. "City"
	Table           string
	IDColumn        string
	NameColumn      string
	ShortNameColumn string // empty when the table has no short name
}

var (
	// CityKind is the mas_city lookup table
	CityKind = ReferenceKind{
		Entity:     "City",
		Table:      "mas_city",
		IDColumn:   "city_id",
		NameColumn: "city_name",
	}

	// NationalityKind is the mas_nationality lookup table
	NationalityKind = ReferenceKind{
		Entity:     "Nationality",
		Table:      "mas_nationality",
		IDColumn:   "nationality_id",
		NameColumn: "nationality_name",
	}

	// IDProofKind is the mas_idproof lookup table
	IDProofKind = ReferenceKind{
		Entity:          "ID Proof",
		Table:           "mas_idproof",
		IDColumn:        "proof_id",
		NameColumn:      "id_name",
		ShortNameColumn: "short_name",
	}
)

// HasShortName reports whether the table carries a short name column
func (k ReferenceKind) HasShortName() bool {
	return k.ShortNameColumn != ""
}

// ReferenceItem is one row of a lookup table
type ReferenceItem struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	ShortName   string    `db:"short_name"`
	CreatedDate time.Time `db:"created_date"`
	CreatedTime string    `db:"created_time"`
	IsActive    bool      `db:"is_active"`
}

// Render returns the row keyed by the table's own column names, which is the
// shape the admin screens read.
func (k ReferenceKind) Render(item ReferenceItem) map[string]interface{} {
	active := 0
	if item.IsActive {
		active = 1
	}
	out := map[string]interface{}{
		k.IDColumn:     item.ID,
		k.NameColumn:   item.Name,
		"created_date": item.CreatedDate.Format("2006-01-02"),
		"created_time": item.CreatedTime,
		"is_active":    active,
	}
	if k.HasShortName() {
		out[k.ShortNameColumn] = item.ShortName
	}
	return out
}

// Option returns the compact id/name pair used by form dropdowns
func (k ReferenceKind) Option(item ReferenceItem) map[string]interface{} {
	return map[string]interface{}{
		k.IDColumn:   item.ID,
		k.NameColumn: item.Name,
	}
}
