package models

import "time"

// Hotel is a property that can issue guest registration QR codes
type Hotel struct {
	ID              int64     `json:"id" db:"id"`
	Code            string    `json:"code" db:"code"`
	Name            string    `json:"name" db:"name"`
	QRGenerated     bool      `json:"qr_generated" db:"qr_generated"`
	LastQRGenerated NullTime  `json:"last_qr_generated" db:"last_qr_generated"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CreateHotelRequest is the payload for registering a hotel
type CreateHotelRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UpdateHotelRequest is the payload for renaming a hotel
type UpdateHotelRequest struct {
	Name string `json:"name"`
}

// GenerateQRRequest is the payload for issuing a single QR code
type GenerateQRRequest struct {
	HotelCode string `json:"hotelCode"`
	HotelName string `json:"hotelName"`
}

// QRCodeRecord describes a generated QR image and where to fetch it
type QRCodeRecord struct {
	HotelCode     string `json:"hotelCode"`
	HotelName     string `json:"hotelName"`
	FileName      string `json:"fileName"`
	QRImageURL    string `json:"qrImageUrl"`
	DownloadURL   string `json:"downloadUrl"`
	ScanURL       string `json:"scanUrl"`
	GeneratedTime int64  `json:"generatedTime"` // epoch milliseconds
	IsValid       bool   `json:"isValid,omitempty"`
	IsGenerated   bool   `json:"isGenerated,omitempty"`
}

// QRCodeListing is the QR manager overview
type QRCodeListing struct {
	QRCodes          []QRCodeRecord `json:"qrCodes"`
	PredefinedHotels []*Hotel       `json:"predefinedHotels"`
	GeneratedCodes   []string       `json:"generatedCodes"`
}

// HotelCodeStatus answers whether a code may be used on the guest form
type HotelCodeStatus struct {
	HotelCode   string `json:"hotelCode"`
	IsValid     bool   `json:"isValid"`
	IsGenerated bool   `json:"isGenerated"`
	Message     string `json:"message"`
}
