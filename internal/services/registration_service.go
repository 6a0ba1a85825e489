package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/guestdesk/registration-backend/internal/config"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/metrics"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/storage"
	"github.com/guestdesk/registration-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// Upload is one file received in a multipart request
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// RegistrationForm is the guest self-registration submission
type RegistrationForm struct {
	HotelCode   string `form:"hotel_code" validate:"notblank,hotelcode"`
	FullName    string `form:"fullName" validate:"notblank"`
	MobileNo    string `form:"mobileNo" validate:"notblank,mobile"`
	Email       string `form:"email" validate:"notblank,guestemail"`
	Nationality string `form:"nationality" validate:"notblank,number"`
	Address     string `form:"address" validate:"notblank"`
	CityID      string `form:"city_id" validate:"notblank,number"`
	Pincode     string `form:"pincode" validate:"pincode"`
	OffAddress  string `form:"off_address" validate:"notblank"`
	OffCityID   string `form:"off_city_id" validate:"notblank,number"`
	OffPincode  string `form:"off_pincode" validate:"pincode"`
	MacID       string `form:"mac_id"`
	IDTypes     []string
	IDNumbers   []string
}

func (f *RegistrationForm) normalize() {
	for _, field := range []*string{
		&f.HotelCode, &f.FullName, &f.MobileNo, &f.Email, &f.Nationality, &f.Address,
		&f.CityID, &f.Pincode, &f.OffAddress, &f.OffCityID, &f.OffPincode, &f.MacID,
	} {
		*field = strings.TrimSpace(*field)
	}
}

var registrationMessages = validator.FieldMessages{
	"hotel_code":  {"notblank": "Hotel code is required", "": "Invalid hotel code"},
	"fullName":    {"": "Full Name is required."},
	"mobileNo":    {"notblank": "Mobile Number is required.", "": "Mobile Number must be up to 13 digits only."},
	"email":       {"notblank": "Email is required.", "": "Invalid Email format"},
	"nationality": {"notblank": "Nationality is required.", "": "Nationality is invalid."},
	"address":     {"": "Address-1 street is required."},
	"city_id":     {"notblank": "Address-1 city is required.", "": "Address-1 city is invalid."},
	"pincode":     {"": "Address-1 pincode must be exactly 6 digits."},
	"off_address": {"": "Address-2 street is required."},
	"off_city_id": {"notblank": "Address-2 city is required.", "": "Address-2 city is invalid."},
	"off_pincode": {"": "Address-2 pincode must be exactly 6 digits."},
}

// UpdateForm is an admin edit of a guest record
type UpdateForm struct {
	Name          string `form:"name" validate:"notblank,min=2"`
	Email         string `form:"email" validate:"guestemail"`
	MobileNo      string `form:"mobileNo" validate:"mobile"`
	NationalityID string `form:"nationality_id" validate:"number"`
	Address       string `form:"address" validate:"notblank"`
	CityID        string `form:"city_id" validate:"number"`
	Pincode       string `form:"pincode" validate:"pincode"`
	OffAddress    string `form:"off_address" validate:"notblank"`
	OffCityID     string `form:"off_city_id" validate:"number"`
	OffPincode    string `form:"off_pincode" validate:"pincode"`
	ProfilePhoto  string `form:"profilePhoto"`
	HotelCode     string `form:"hotel_code" validate:"omitempty,hotelcode"`
	IDDocuments   string `form:"idDocuments"`
}

func (f *UpdateForm) normalize() {
	for _, field := range []*string{
		&f.Name, &f.Email, &f.MobileNo, &f.NationalityID, &f.Address, &f.CityID,
		&f.Pincode, &f.OffAddress, &f.OffCityID, &f.OffPincode, &f.ProfilePhoto, &f.HotelCode,
	} {
		*field = strings.TrimSpace(*field)
	}
}

var updateMessages = validator.FieldMessages{
	"name":           {"": "Name is required and must be at least 2 characters long"},
	"email":          {"": "Valid email is required"},
	"mobileNo":       {"": "Valid mobile number is required (up to 13 digits)"},
	"nationality_id": {"": "Valid nationality is required"},
	"address":        {"": "Primary address is required"},
	"city_id":        {"": "Primary city is required"},
	"pincode":        {"": "Valid 6-digit primary pincode is required"},
	"off_address":    {"": "Secondary address is required"},
	"off_city_id":    {"": "Secondary city is required"},
	"off_pincode":    {"": "Valid 6-digit secondary pincode is required"},
	"hotel_code":     {"": "Invalid hotel code"},
}

// DocumentInput is one entry of the idDocuments list sent on update
type DocumentInput struct {
	ProofID int64
	Number  string
	Image   string
}

// RegistrationResult is returned after a successful registration
type RegistrationResult struct {
	UserID       int64
	HotelCode    string
	ProfileImage string
}

// RegistrationService creates and edits guest records together with their
// uploaded images. Files written for a request that fails are removed.
type RegistrationService struct {
	guests   *database.GuestRepository
	hotels   *database.HotelRepository
	images   *storage.ImageStore
	validate *govalidator.Validate
	cfg      config.StorageConfig
	defaults config.RegistrationConfig
	logger   *logrus.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	guests *database.GuestRepository,
	hotels *database.HotelRepository,
	images *storage.ImageStore,
	storageCfg config.StorageConfig,
	registrationCfg config.RegistrationConfig,
	logger *logrus.Logger,
) *RegistrationService {
	return &RegistrationService{
		guests:   guests,
		hotels:   hotels,
		images:   images,
		validate: validator.New(),
		cfg:      storageCfg,
		defaults: registrationCfg,
		logger:   logger,
	}
}

// EffectiveHotelCode picks the form value, then the query value, then the
// configured default.
func (s *RegistrationService) EffectiveHotelCode(formCode, queryCode string) string {
	for _, code := range []string{formCode, queryCode, s.defaults.DefaultHotelCode, config.DefaultHotelCode} {
		if code = strings.TrimSpace(code); code != "" {
			return code
		}
	}
	return ""
}

func (s *RegistrationService) checkImage(up *Upload) string {
	if !storage.IsImage(up.ContentType) {
		return "Only image files are allowed."
	}
	if s.cfg.MaxUploadSize > 0 && up.Size > s.cfg.MaxUploadSize {
		return fmt.Sprintf("File must be at most %d MB.", s.cfg.MaxUploadSize>>20)
	}
	return ""
}

func (s *RegistrationService) validateRegistration(form *RegistrationForm, profile *Upload, idFiles []Upload) map[string]string {
	errs := validator.Collect(s.validate.Struct(form), registrationMessages)
	if errs == nil {
		errs = make(map[string]string)
	}

	if profile == nil {
		errs["profilePhoto"] = "Profile Photo is required."
	} else if msg := s.checkImage(profile); msg != "" {
		errs["profilePhoto"] = msg
	}

	switch {
	case len(form.IDTypes) == 0 || len(form.IDNumbers) == 0 || len(idFiles) == 0:
		errs["idFile"] = "At least one ID Document is required."
	case s.cfg.MaxIDFiles > 0 && len(idFiles) > s.cfg.MaxIDFiles:
		errs["idFile"] = fmt.Sprintf("At most %d ID Documents are allowed.", s.cfg.MaxIDFiles)
	default:
		count := max(len(form.IDTypes), len(form.IDNumbers), len(idFiles))
		for i := 0; i < count; i++ {
			if i >= len(form.IDTypes) || strings.TrimSpace(form.IDTypes[i]) == "" {
				errs[fmt.Sprintf("idType_%d", i)] = "ID Type is required."
			} else if _, err := strconv.ParseInt(strings.TrimSpace(form.IDTypes[i]), 10, 64); err != nil {
				errs[fmt.Sprintf("idType_%d", i)] = "ID Type is invalid."
			}
			if i >= len(form.IDNumbers) || strings.TrimSpace(form.IDNumbers[i]) == "" {
				errs[fmt.Sprintf("idNumber_%d", i)] = "ID Number is required."
			}
			if i >= len(idFiles) {
				errs[fmt.Sprintf("idFile_%d", i)] = "ID Document image is required."
			} else if msg := s.checkImage(&idFiles[i]); msg != "" {
				errs[fmt.Sprintf("idFile_%d", i)] = msg
			}
		}
	}

	return errs
}

// hotelProblem explains why a hotel code cannot take guest submissions, or
// returns "" for an active hotel. requireQR also demands an issued QR code.
func (s *RegistrationService) hotelProblem(ctx context.Context, code string, requireQR bool) (string, error) {
	hotel, err := s.hotels.GetActiveByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if hotel == nil {
		return "Invalid hotel code", nil
	}
	if requireQR && !hotel.QRGenerated {
		return "QR code not generated for this hotel", nil
	}
	return "", nil
}

func duplicateMessage(match models.DuplicateMatch) string {
	var messages []string
	if match.Mobile {
		messages = append(messages, "Mobile number already exists")
	}
	if match.Email {
		messages = append(messages, "Email already exists")
	}
	if len(messages) == 0 {
		return "Mobile number or email already exists"
	}
	return strings.Join(messages, " & ")
}

// Register validates the submission, rejects duplicates, then inserts the
// guest and its documents in one transaction while storing the images.
func (s *RegistrationService) Register(ctx context.Context, form *RegistrationForm, profile *Upload, idFiles []Upload) (*RegistrationResult, error) {
	form.normalize()
	if errs := s.validateRegistration(form, profile, idFiles); len(errs) > 0 {
		metrics.GuestRegistrations.WithLabelValues("invalid").Inc()
		return nil, invalid("Validation errors").with("errors", errs)
	}

	problem, err := s.hotelProblem(ctx, form.HotelCode, true)
	if err != nil {
		metrics.GuestRegistrations.WithLabelValues("error").Inc()
		return nil, err
	}
	if problem != "" {
		metrics.GuestRegistrations.WithLabelValues("invalid").Inc()
		return nil, invalid("Validation errors").with("errors", map[string]string{"hotel_code": problem})
	}

	match, err := s.guests.FindDuplicates(ctx, form.MobileNo, form.Email, 0)
	if err != nil {
		metrics.GuestRegistrations.WithLabelValues("error").Inc()
		return nil, err
	}
	if match.Any() {
		metrics.GuestRegistrations.WithLabelValues("duplicate").Inc()
		return nil, invalid("%s", duplicateMessage(match))
	}

	guest := &models.Guest{
		Name:          strings.TrimSpace(form.FullName),
		MobileNo:      strings.TrimSpace(form.MobileNo),
		Email:         strings.ToLower(strings.TrimSpace(form.Email)),
		NationalityID: mustInt(form.Nationality),
		Address:       strings.TrimSpace(form.Address),
		CityID:        mustInt(form.CityID),
		Pincode:       strings.TrimSpace(form.Pincode),
		OffAddress:    strings.TrimSpace(form.OffAddress),
		OffCityID:     mustInt(form.OffCityID),
		OffPincode:    strings.TrimSpace(form.OffPincode),
		MacID:         models.NewNullString(strings.TrimSpace(form.MacID)),
		HotelCode:     strings.TrimSpace(form.HotelCode),
	}

	batch := s.images.NewBatch()
	attach := func(guestID int64) (string, []models.GuestDocument, error) {
		stored, err := s.save(batch, profile, storage.KindProfile, guest.Name, guest.HotelCode)
		if err != nil {
			return "", nil, storageFailure("Failed to save profile image", err)
		}

		docs := make([]models.GuestDocument, 0, len(idFiles))
		for i := range idFiles {
			idDoc, err := s.save(batch, &idFiles[i], storage.KindID, guest.Name, guest.HotelCode)
			if err != nil {
				return "", nil, storageFailure("Failed to save some ID documents", err)
			}
			docs = append(docs, models.GuestDocument{
				ProofID:  mustInt(form.IDTypes[i]),
				Number:   strings.TrimSpace(form.IDNumbers[i]),
				ImageURL: idDoc.URL,
			})
		}
		return stored.URL, docs, nil
	}

	userID, err := s.guests.CreateWithDocuments(ctx, guest, attach)
	if err != nil {
		s.discard(batch)

		var dup *database.DuplicateGuestError
		if errors.As(err, &dup) {
			metrics.GuestRegistrations.WithLabelValues("duplicate").Inc()
			return nil, invalid("%s", duplicateMessage(dup.Match))
		}
		metrics.GuestRegistrations.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.GuestRegistrations.WithLabelValues("success").Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"hotel_code": guest.HotelCode,
		"documents":  len(idFiles),
	}).Info("Guest registered")

	return &RegistrationResult{
		UserID:       userID,
		HotelCode:    guest.HotelCode,
		ProfileImage: guest.ProfileImage.String,
	}, nil
}

// ParseDocuments decodes the idDocuments JSON array, which may also arrive as
// a JSON string holding the array. Entries without a positive proof id are
// dropped.
func ParseDocuments(raw string) ([]DocumentInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []DocumentInput{}, nil
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// the admin UI may send the array JSON-encoded a second time
		var inner string
		if json.Unmarshal([]byte(raw), &inner) != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(inner), &entries); err != nil {
			return nil, err
		}
	}

	docs := make([]DocumentInput, 0, len(entries))
	for _, entry := range entries {
		proof := entry["idType"]
		if proof == nil {
			proof = entry["proof_id"]
		}
		proofID, ok := asInt(proof)
		if !ok || proofID <= 0 {
			continue
		}

		image, _ := entry["image"].(string)
		docs = append(docs, DocumentInput{
			ProofID: proofID,
			Number:  strings.TrimSpace(asString(entry["idNumber"])),
			Image:   strings.TrimSpace(image),
		})
	}
	return docs, nil
}

// Update edits a guest. Required fields are always written; the profile photo
// and hotel code only when supplied. The document list replaces the stored
// one, and new files fill the documents that carry no image yet, in order.
func (s *RegistrationService) Update(ctx context.Context, guestID int64, form *UpdateForm, profile *Upload, idFiles []Upload) (*RegistrationResult, error) {
	docs, err := ParseDocuments(form.IDDocuments)
	if err != nil {
		return nil, invalid("Invalid ID documents format")
	}

	form.normalize()
	if errs := validator.CollectOrdered(s.validate.Struct(form), updateMessages); len(errs) > 0 {
		return nil, invalid("Validation failed").with("errors", errs)
	}

	var fileErrs []string
	if profile != nil {
		if msg := s.checkImage(profile); msg != "" {
			fileErrs = append(fileErrs, "Profile photo: "+msg)
		}
	}
	if s.cfg.MaxIDFilesUpdate > 0 && len(idFiles) > s.cfg.MaxIDFilesUpdate {
		fileErrs = append(fileErrs, fmt.Sprintf("At most %d ID document files are allowed", s.cfg.MaxIDFilesUpdate))
	}
	for i := range idFiles {
		if msg := s.checkImage(&idFiles[i]); msg != "" {
			fileErrs = append(fileErrs, fmt.Sprintf("ID document %d: %s", i+1, msg))
		}
	}
	if len(fileErrs) > 0 {
		return nil, invalid("Validation failed").with("errors", fileErrs)
	}

	if form.HotelCode != "" {
		problem, err := s.hotelProblem(ctx, form.HotelCode, false)
		if err != nil {
			return nil, err
		}
		if problem != "" {
			return nil, invalid("Validation failed").with("errors", []string{problem})
		}
	}

	batch := s.images.NewBatch()
	var hotelCode string
	build := func(current *models.Guest) (*models.GuestChanges, []models.GuestDocument, error) {
		hotelCode = current.HotelCode
		if code := strings.TrimSpace(form.HotelCode); code != "" {
			hotelCode = code
		}

		changes := &models.GuestChanges{
			Name:          &form.Name,
			MobileNo:      strPtr(strings.TrimSpace(form.MobileNo)),
			Email:         strPtr(strings.ToLower(strings.TrimSpace(form.Email))),
			NationalityID: intPtr(mustInt(form.NationalityID)),
			Address:       strPtr(strings.TrimSpace(form.Address)),
			CityID:        intPtr(mustInt(form.CityID)),
			Pincode:       strPtr(strings.TrimSpace(form.Pincode)),
			OffAddress:    strPtr(strings.TrimSpace(form.OffAddress)),
			OffCityID:     intPtr(mustInt(form.OffCityID)),
			OffPincode:    strPtr(strings.TrimSpace(form.OffPincode)),
		}
		if strings.TrimSpace(form.HotelCode) != "" {
			changes.HotelCode = strPtr(hotelCode)
		}

		if profile != nil {
			stored, err := s.save(batch, profile, storage.KindProfile, form.Name, hotelCode)
			if err != nil {
				return nil, nil, storageFailure("Failed to save profile image", err)
			}
			changes.ProfileImage = strPtr(stored.URL)
		} else if photo := strings.TrimSpace(form.ProfilePhoto); photo != "" {
			changes.ProfileImage = strPtr(photo)
		}

		rows := make([]models.GuestDocument, 0, len(docs))
		next := 0
		for _, doc := range docs {
			image := doc.Image
			if image == "" && next < len(idFiles) {
				stored, err := s.save(batch, &idFiles[next], storage.KindID, form.Name, hotelCode)
				if err != nil {
					return nil, nil, storageFailure("Failed to save some ID documents", err)
				}
				next++
				image = stored.URL
			}
			if image == "" || doc.Number == "" {
				continue
			}
			rows = append(rows, models.GuestDocument{ProofID: doc.ProofID, Number: doc.Number, ImageURL: image})
		}
		return changes, rows, nil
	}

	err = s.guests.UpdateWithDocuments(ctx, guestID, form.MobileNo, form.Email, build)
	if err != nil {
		s.discard(batch)

		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("User not found")
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, invalid("Email or mobile number already exists for another user")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": guestID, "hotel_code": hotelCode}).Info("Guest updated")
	return &RegistrationResult{UserID: guestID, HotelCode: hotelCode}, nil
}

// SaveMisc stores a single image not tied to a guest record
func (s *RegistrationService) SaveMisc(up *Upload, hotelCode string) (*storage.StoredFile, error) {
	if msg := s.checkImage(up); msg != "" {
		return nil, invalid("%s", msg)
	}
	hotelCode = s.EffectiveHotelCode(hotelCode, "")
	if !validator.IsValidHotelCode(hotelCode) {
		return nil, invalid("Invalid hotel code")
	}
	stored, err := s.save(nil, up, storage.KindMisc, "", hotelCode)
	if err != nil {
		return nil, storageFailure("Failed to save file", err)
	}
	return stored, nil
}

func (s *RegistrationService) save(batch *storage.Batch, up *Upload, kind storage.Kind, guestName, hotelCode string) (*storage.StoredFile, error) {
	src, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	if batch == nil {
		return s.images.Save(src, up.Name, up.ContentType, kind, guestName, hotelCode)
	}
	return batch.Save(src, up.Name, up.ContentType, kind, guestName, hotelCode)
}

func (s *RegistrationService) discard(batch *storage.Batch) {
	paths := len(batch.Paths())
	if paths == 0 {
		return
	}
	if err := batch.Discard(); err != nil {
		s.logger.WithError(err).Error("Failed to remove images of a failed guest write")
		return
	}
	s.logger.WithField("files", paths).Warn("Removed images of a failed guest write")
}

func mustInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func asInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func strPtr(s string) *string { return &s }

func intPtr(n int64) *int64 { return &n }
