package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/pkg/qrcode"
	"github.com/sirupsen/logrus"
)

// QRService issues, lists and removes the hotel QR images. The hotels table is
// the single source of which codes are valid and generated.
type QRService struct {
	hotels  *database.HotelRepository
	encoder qrcode.Encoder
	dir     string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewQRService creates a QR service writing images into dir
func NewQRService(hotels *database.HotelRepository, encoder qrcode.Encoder, dir string, logger *logrus.Logger) *QRService {
	return &QRService{
		hotels:  hotels,
		encoder: encoder,
		dir:     dir,
		logger:  logger,
		now:     time.Now,
	}
}

// ScanURL is the guest form address encoded in a hotel's QR image
func ScanURL(baseURL, hotelCode string) string {
	return strings.TrimRight(baseURL, "/") + "/userform?hotelCode=" + url.QueryEscape(hotelCode)
}

func record(hotelCode, hotelName, fileName, baseURL string, generated time.Time) models.QRCodeRecord {
	return models.QRCodeRecord{
		HotelCode:     hotelCode,
		HotelName:     hotelName,
		FileName:      fileName,
		QRImageURL:    "/api/qr-codes/preview/" + fileName,
		DownloadURL:   "/api/qr-codes/download/" + fileName,
		ScanURL:       ScanURL(baseURL, hotelCode),
		GeneratedTime: generated.UnixMilli(),
	}
}

// Generate renders a new QR image for an active hotel and marks it generated.
// hotelName overrides the stored name in the returned record when set.
func (s *QRService) Generate(ctx context.Context, hotelCode, hotelName, baseURL string) (*models.QRCodeRecord, error) {
	hotelCode = strings.TrimSpace(hotelCode)
	if hotelCode == "" {
		return nil, invalid("Hotel code is required")
	}

	hotel, err := s.hotels.GetActiveByCode(ctx, hotelCode)
	if err != nil {
		return nil, err
	}
	if hotel == nil {
		active, err := s.hotels.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(active))
		for _, h := range active {
			codes = append(codes, h.Code)
		}
		return nil, invalid("Invalid hotel code. Only predefined hotel codes are allowed.").with("validCodes", codes)
	}

	if strings.TrimSpace(hotelName) == "" {
		hotelName = hotel.Name
	}
	return s.issue(ctx, hotel.Code, hotelName, baseURL)
}

// GenerateAll issues a fresh QR image for every active hotel
func (s *QRService) GenerateAll(ctx context.Context, baseURL string) ([]models.QRCodeRecord, error) {
	hotels, err := s.hotels.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.QRCodeRecord, 0, len(hotels))
	for _, h := range hotels {
		rec, err := s.issue(ctx, h.Code, h.Name, baseURL)
		if err != nil {
			return nil, fmt.Errorf("hotel %s: %w", h.Code, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *QRService) issue(ctx context.Context, code, name, baseURL string) (*models.QRCodeRecord, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create QR directory: %w", err)
	}

	now := s.now()
	fileName := qrcode.FileName(code, now)
	path := filepath.Join(s.dir, fileName)
	rec := record(code, name, fileName, baseURL, now)

	if err := s.encoder.EncodePNG(rec.ScanURL, path); err != nil {
		return nil, err
	}

	if err := s.hotels.SetQRGenerated(ctx, code, true); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"hotel_code": code, "file": fileName}).Info("QR code generated")
	return &rec, nil
}

// List returns the QR images on disk whose hotel is active and generated,
// newest first, along with the hotel registry.
func (s *QRService) List(ctx context.Context, baseURL string) (*models.QRCodeListing, error) {
	hotels, err := s.hotels.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	listing := &models.QRCodeListing{
		QRCodes:          []models.QRCodeRecord{},
		PredefinedHotels: hotels,
		GeneratedCodes:   generatedCodes(hotels),
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return listing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read QR directory: %w", err)
	}

	byCode := make(map[string]*models.Hotel, len(hotels))
	for _, h := range hotels {
		byCode[h.Code] = h
	}

	for _, entry := range entries {
		if entry.IsDir() || !qrcode.IsCandidate(entry.Name()) {
			continue
		}
		code, generated, ok := qrcode.ParseFileName(entry.Name())
		if !ok {
			continue
		}
		hotel, known := byCode[code]
		if !known || !hotel.QRGenerated {
			continue
		}

		rec := record(code, hotel.Name, entry.Name(), baseURL, generated)
		rec.IsValid = true
		rec.IsGenerated = true
		listing.QRCodes = append(listing.QRCodes, rec)
	}

	sort.SliceStable(listing.QRCodes, func(i, j int) bool {
		return listing.QRCodes[i].GeneratedTime > listing.QRCodes[j].GeneratedTime
	})
	return listing, nil
}

// filePath validates a client supplied file name and returns its path in the
// QR directory. A name that is not a bare file name reads as missing.
func (s *QRService) filePath(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.ContainsAny(fileName, `/\`) || fileName == ".." {
		return "", invalid("Invalid file name")
	}

	path := filepath.Join(s.dir, fileName)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", notFound("QR code file not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat QR code: %w", err)
	}
	return path, nil
}

// Delete removes a QR image and clears the hotel's generated flag. Only images
// of an active hotel may be deleted.
func (s *QRService) Delete(ctx context.Context, fileName string) error {
	path, err := s.filePath(fileName)
	if err != nil {
		return err
	}

	code, _, ok := qrcode.ParseFileName(fileName)
	var hotel *models.Hotel
	if ok {
		if hotel, err = s.hotels.GetActiveByCode(ctx, code); err != nil {
			return err
		}
	}
	if hotel == nil {
		return invalid("Cannot delete QR code for invalid hotel code")
	}

	if err := s.hotels.SetQRGenerated(ctx, code, false); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete QR code: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"hotel_code": code, "file": fileName}).Info("QR code deleted")
	return nil
}

// Open returns the path of a servable QR image. action names the operation in
// the error message, "download" or "preview".
func (s *QRService) Open(ctx context.Context, fileName, action string) (string, error) {
	path, err := s.filePath(fileName)
	if err != nil {
		return "", err
	}

	code, _, ok := qrcode.ParseFileName(fileName)
	var hotel *models.Hotel
	if ok {
		if hotel, err = s.hotels.GetActiveByCode(ctx, code); err != nil {
			return "", err
		}
	}
	if hotel == nil || !hotel.QRGenerated {
		return "", invalid("Cannot %s QR code for invalid or non-generated hotel code", action)
	}
	return path, nil
}
