package models

import "time"

// Guest is a row of the users table: one self-registered hotel guest
type Guest struct {
	ID            int64      `db:"user_id"`
	Name          string     `db:"name"`
	MobileNo      string     `db:"mobile_no"`
	Email         string     `db:"email"`
	NationalityID int64      `db:"national_id"`
	Address       string     `db:"address"`
	CityID        int64      `db:"city_id"`
	Pincode       string     `db:"pincode"`
	OffAddress    string     `db:"off_address"`
	OffCityID     int64      `db:"off_city_id"`
	OffPincode    string     `db:"off_pincode"`
	MacID         NullString `db:"mac_id"`
	HotelCode     string     `db:"hotel_code"`
	ProfileImage  NullString `db:"profile_img_path"`
}

// GuestDocument is one identity document row (user_details)
type GuestDocument struct {
	ProofID  int64  `db:"id_proof"`
	Number   string `db:"id_number"`
	ImageURL string `db:"id_img_path"`
}

// GuestChanges lists the columns an update touches. Nil fields are left as-is.
type GuestChanges struct {
	Name          *string
	MobileNo      *string
	Email         *string
	NationalityID *int64
	Address       *string
	CityID        *int64
	Pincode       *string
	OffAddress    *string
	OffCityID     *int64
	OffPincode    *string
	HotelCode     *string
	ProfileImage  *string
}

// GuestRow is one flattened row of the guest/lookup join. A guest with several
// documents appears once per document.
type GuestRow struct {
	UserID          int64      `db:"user_id"`
	Name            string     `db:"name"`
	MobileNo        string     `db:"mobile_no"`
	Email           string     `db:"email"`
	NationalityID   NullInt64  `db:"nationality_id"`
	Nationality     NullString `db:"nationality"`
	HotelCode       string     `db:"hotel_code"`
	CreatedDate     time.Time  `db:"created_date"`
	Address1Street  NullString `db:"address1_street"`
	Address1CityID  NullInt64  `db:"address1_city_id"`
	Address1City    NullString `db:"address1_city"`
	Address1Pincode NullString `db:"address1_pincode"`
	Address2Street  NullString `db:"address2_street"`
	Address2CityID  NullInt64  `db:"address2_city_id"`
	Address2City    NullString `db:"address2_city"`
	Address2Pincode NullString `db:"address2_pincode"`
	ProfilePhoto    NullString `db:"profile_photo"`
	IDNumber        NullString `db:"id_number"`
	IDImage         NullString `db:"id_image"`
	ProofID         NullInt64  `db:"proof_id"`
	ProofName       NullString `db:"proof_name"`
}

// GuestAddress is a postal address in the admin view
type GuestAddress struct {
	Street  NullString `json:"street"`
	City    NullString `json:"city"`
	CityID  NullInt64  `json:"city_id"`
	Pincode NullString `json:"pincode"`
}

// GuestDocumentView is an identity document in the admin view
type GuestDocumentView struct {
	ProofName string     `json:"proofName"`
	ProofID   NullInt64  `json:"proof_id"`
	Number    string     `json:"number"`
	Image     NullString `json:"image"`
}

// GuestView is the nested guest shape returned to the admin UI
type GuestView struct {
	UserID        int64               `json:"userId"`
	Name          string              `json:"name"`
	MobileNo      string              `json:"mobileNo"`
	Email         string              `json:"email"`
	Nationality   NullString          `json:"nationality"`
	NationalityID NullInt64           `json:"nationality_id"`
	HotelCode     string              `json:"hotelCode"`
	CreatedDate   string              `json:"createdDate"`
	Address1      GuestAddress        `json:"address1"`
	Address2      GuestAddress        `json:"address2"`
	ProfilePhoto  NullString          `json:"profilePhoto"`
	IDDocuments   []GuestDocumentView `json:"idDocuments"`
}

// HotelGuestSummary is a guest row with a document count, listed per hotel
type HotelGuestSummary struct {
	UserID          int64      `json:"user_id" db:"user_id"`
	Name            string     `json:"name" db:"name"`
	MobileNo        string     `json:"mobileNo" db:"mobile_no"`
	Email           string     `json:"email" db:"email"`
	HotelCode       string     `json:"hotel_code" db:"hotel_code"`
	ProfilePhoto    NullString `json:"profilePhoto" db:"profile_photo"`
	IDDocumentCount int        `json:"id_document_count" db:"id_document_count"`
}

// DuplicateMatch reports which unique guest fields are already taken
type DuplicateMatch struct {
	Mobile bool
	Email  bool
}

// Any reports whether either field collided
func (d DuplicateMatch) Any() bool {
	return d.Mobile || d.Email
}
