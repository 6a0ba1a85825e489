package handlers

import (
	"bytes"
	"database/sql/driver"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/config"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/guestdesk/registration-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGuestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, string) {
	t.Helper()
	return newGuestRouter(t, false)
}

// newGuestRouter builds the guest routes. limited adds a registration rate
// limiter backed by the same mock database.
func newGuestRouter(t *testing.T, limited bool) (*gin.Engine, sqlmock.Sqlmock, string) {
	t.Helper()

	db, mock := newMockDB(t)
	root := t.TempDir()
	logger := quietLogger()

	registration := services.NewRegistrationService(
		database.NewGuestRepository(db),
		database.NewHotelRepository(db),
		storage.NewImageStore(root, "http://localhost:8080"),
		config.StorageConfig{MaxUploadSize: 1 << 20, MaxIDFiles: 3, MaxIDFilesUpdate: 5},
		config.RegistrationConfig{DefaultHotelCode: "grandhotel"},
		logger,
	)
	cleanup := services.NewCleanupService(root, 24*time.Hour, logger)
	var limits *services.RateLimitService
	if limited {
		limits = services.NewRateLimitService(db, testRateLimits)
	}

	handler := NewGuestHandler(GuestHandlerDeps{
		Registration: registration,
		Guests:       services.NewGuestService(database.NewGuestRepository(db)),
		Nationality:  services.NewReferenceService(database.NewReferenceRepository(db, models.NationalityKind)),
		City:         services.NewReferenceService(database.NewReferenceRepository(db, models.CityKind)),
		IDProof:      services.NewReferenceService(database.NewReferenceRepository(db, models.IDProofKind)),
		Cron:         services.NewCronService(cleanup, nil, nil, "0 0 0 * * *", logger),
		RateLimit:    limits,
	}, logger)

	router := gin.New()
	group := router.Group("/api/user")
	handler.RegisterRoutes(group, group)
	return router, mock, root
}

type multipartFile struct {
	field, name, contentType string
}

// performMultipart posts fields and small placeholder files as multipart/form-data
func performMultipart(router http.Handler, path string, fields map[string][]string, files []multipartFile) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			_ = writer.WriteField(name, v)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		header.Set("Content-Type", f.contentType)
		part, _ := writer.CreatePart(header)
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validGuestFields() map[string][]string {
	return map[string][]string{
		"fullName":    {"Asha Rao"},
		"mobileNo":    {"9876543210"},
		"email":       {"guest@example.com"},
		"nationality": {"1"},
		"address":     {"12 Lake Road"},
		"city_id":     {"4"},
		"pincode":     {"560001"},
		"off_address": {"88 Park Street"},
		"off_city_id": {"5"},
		"off_pincode": {"700016"},
		"idType[]":    {"1"},
		"idNumber[]":  {"A1234"},
	}
}

func TestGuestHandler_Insert_ValidationErrors(t *testing.T) {
	router, mock, root := setupGuestRouter(t)

	w := performMultipart(router, "/api/user/insert", map[string][]string{"mobileNo": {"12ab"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeObject(t, w)
	assert.Equal(t, "Validation errors", body["message"])
	assert.NotContains(t, body, "success")

	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "Full Name is required.", errs["fullName"])
	assert.Equal(t, "Mobile Number must be up to 13 digits only.", errs["mobileNo"])
	assert.Equal(t, "Profile Photo is required.", errs["profilePhoto"])
	assert.Equal(t, "At least one ID Document is required.", errs["idFile"])
	assert.NotContains(t, errs, "hotel_code")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectGeneratedHotel(mock sqlmock.Sqlmock, code string) {
	mock.ExpectQuery("FROM hotels WHERE code").
		WithArgs(code).
		WillReturnRows(hotelRow(sqlmock.NewRows(hotelColumns), 1, code, "Sea View", true))
}

// suffixArg matches a string argument ending with suffix
type suffixArg string

func (a suffixArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.HasSuffix(s, string(a))
}

// captureArg accepts any string argument and keeps it
type captureArg struct{ value *string }

func (a captureArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*a.value = s
	}
	return ok
}

func countStored(t *testing.T, root string) int {
	t.Helper()

	var files int
	require.NoError(t, filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files++
		}
		return err
	}))
	return files
}

func TestGuestHandler_Insert_Success(t *testing.T) {
	router, mock, root := setupGuestRouter(t)

	expectGeneratedHotel(mock, "seaview")
	mock.ExpectQuery("BOOL_OR").
		WithArgs("9876543210", "guest@example.com", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"mobile", "email"}).AddRow(false, false))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(31))
	mock.ExpectExec("UPDATE users SET profile_img_path").
		WithArgs(suffixArg(".png"), int64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_details").
		WithArgs(int64(31), int64(1), "A1234", suffixArg(".png")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_details").
		WithArgs(int64(31), int64(2), "P7788", suffixArg(".jpg")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	fields := validGuestFields()
	delete(fields, "idType[]")
	delete(fields, "idNumber[]")
	fields["idType"] = []string{"1"}
	fields["idType[]"] = []string{"2"}
	fields["idNumber"] = []string{"A1234"}
	fields["idNumber[]"] = []string{"P7788"}

	w := performMultipart(router, "/api/user/insert?hotelCode=seaview", fields, []multipartFile{
		{field: "profilePhoto", name: "me.png", contentType: "image/png"},
		{field: "idFile", name: "card.png", contentType: "image/png"},
		{field: "idFile", name: "passport.jpg", contentType: "image/jpeg"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeObject(t, w)
	assert.Equal(t, "User and ID proofs inserted successfully!", body["message"])
	assert.Equal(t, float64(31), body["userId"])
	assert.Equal(t, "seaview", body["hotelCode"])
	assert.Contains(t, body["profileImage"], "http://localhost:8080/api/images/seaview/")
	assert.Equal(t, 3, countStored(t, root))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_Insert_EscapingHotelCode(t *testing.T) {
	router, mock, root := setupGuestRouter(t)

	fields := validGuestFields()
	fields["hotel_code"] = []string{"../escaped"}

	w := performMultipart(router, "/api/user/insert", fields, []multipartFile{
		{field: "profilePhoto", name: "me.png", contentType: "image/png"},
		{field: "idFile", name: "id.png", contentType: "image/png"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	errs := decodeObject(t, w)["errors"].(map[string]interface{})
	assert.Equal(t, "Invalid hotel code", errs["hotel_code"])
	assert.NoDirExists(t, filepath.Join(filepath.Dir(root), "escaped"))
	assert.Equal(t, 0, countStored(t, root))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_RegisterThenList(t *testing.T) {
	router, mock, _ := setupGuestRouter(t)

	var number, image string
	expectGeneratedHotel(mock, "grandhotel")
	mock.ExpectQuery("BOOL_OR").
		WillReturnRows(sqlmock.NewRows([]string{"mobile", "email"}).AddRow(false, false))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(12))
	mock.ExpectExec("UPDATE users SET profile_img_path").
		WithArgs(sqlmock.AnyArg(), int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_details").
		WithArgs(int64(12), int64(2), captureArg{&number}, captureArg{&image}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	fields := validGuestFields()
	fields["idType[]"] = []string{"2"}
	fields["idNumber[]"] = []string{"P7788"}

	w := performMultipart(router, "/api/user/insert", fields, []multipartFile{
		{field: "profilePhoto", name: "me.png", contentType: "image/png"},
		{field: "idFile", name: "passport.png", contentType: "image/png"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "P7788", number)

	created := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM users u .* ORDER BY u.user_id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "name", "mobile_no", "email", "nationality_id", "nationality", "hotel_code", "created_date",
			"address1_street", "address1_city_id", "address1_city", "address1_pincode",
			"address2_street", "address2_city_id", "address2_city", "address2_pincode",
			"profile_photo", "id_number", "id_image", "proof_id", "proof_name",
		}).AddRow(
			12, "Asha Rao", "9876543210", "guest@example.com", 1, "Indian", "grandhotel", created,
			"12 Lake Road", 4, "Bengaluru", "560001",
			"88 Park Street", 5, "Kolkata", "700016",
			"http://localhost:8080/api/images/p.png", number, image, 2, "Passport",
		))

	w = performJSON(router, http.MethodGet, "/api/user/getAllUsers", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	guests := decodeArray(t, w)
	require.Len(t, guests, 1)
	assert.Equal(t, float64(12), guests[0]["userId"])

	docs := guests[0]["idDocuments"].([]interface{})
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]interface{})
	assert.Equal(t, "Passport", doc["proofName"])
	assert.Equal(t, "P7788", doc["number"])
	assert.Equal(t, image, doc["image"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_Insert_Duplicate(t *testing.T) {
	router, mock, root := setupGuestRouter(t)

	expectGeneratedHotel(mock, "seaview")
	mock.ExpectQuery("BOOL_OR").
		WithArgs("9876543210", "guest@example.com", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"mobile", "email"}).AddRow(true, false))

	w := performMultipart(router, "/api/user/insert?hotelCode=seaview", validGuestFields(), []multipartFile{
		{field: "profilePhoto", name: "me.png", contentType: "image/png"},
		{field: "idFile", name: "id.png", contentType: "image/png"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Mobile number already exists", decodeObject(t, w)["message"])

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_Insert_RateLimit(t *testing.T) {
	t.Run("Too Many Submissions", func(t *testing.T) {
		router, mock, root := newGuestRouter(t, true)

		mock.ExpectQuery("SELECT COUNT(.+) FROM attempts").
			WithArgs(services.AttemptRegister, "192.0.2.1", services.IdentifierIP, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).AddRow(30, time.Now()))

		w := performMultipart(router, "/api/user/insert", validGuestFields(), []multipartFile{
			{field: "profilePhoto", name: "me.png", contentType: "image/png"},
			{field: "idFile", name: "id.png", contentType: "image/png"},
		})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, decodeObject(t, w)["message"], "Too many registrations from this IP address")

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Submission Is Counted", func(t *testing.T) {
		router, mock, _ := newGuestRouter(t, true)

		mock.ExpectQuery("SELECT COUNT(.+) FROM attempts").
			WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).AddRow(3, time.Now()))
		mock.ExpectExec("INSERT INTO attempts").
			WithArgs(services.AttemptRegister, "192.0.2.1", services.IdentifierIP).
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := performMultipart(router, "/api/user/insert", map[string][]string{"mobileNo": {"12ab"}}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation errors", decodeObject(t, w)["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGuestHandler_CheckDuplicate(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		router, mock, _ := setupGuestRouter(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE LOWER\(TRIM\(email\)\)`).
			WithArgs("guest@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		w := performJSON(router, http.MethodGet, "/api/user/check-duplicate?field=email&value=guest@example.com", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		body := decodeObject(t, w)
		assert.Equal(t, true, body["exists"])
		assert.Equal(t, float64(2), body["count"])
	})

	t.Run("Invalid Field", func(t *testing.T) {
		router, _, _ := setupGuestRouter(t)

		w := performJSON(router, http.MethodGet, "/api/user/check-duplicate?field=name&value=Asha", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid field", decodeObject(t, w)["message"])
	})
}

func TestGuestHandler_GetAndDelete(t *testing.T) {
	t.Run("Bad ID", func(t *testing.T) {
		router, _, _ := setupGuestRouter(t)

		w := performJSON(router, http.MethodGet, "/api/user/abc", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", decodeObject(t, w)["message"])
	})

	t.Run("Unknown Guest", func(t *testing.T) {
		router, mock, _ := setupGuestRouter(t)

		mock.ExpectQuery(`WHERE u.user_id = \$1`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		w := performJSON(router, http.MethodGet, "/api/user/9", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		router, mock, _ := setupGuestRouter(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM user_details`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM users`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := performJSON(router, http.MethodDelete, "/api/user/delete/4", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		body := decodeObject(t, w)
		assert.Equal(t, "User deleted successfully!", body["message"])
		assert.Equal(t, float64(4), body["userId"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGuestHandler_DropdownData(t *testing.T) {
	router, mock, _ := setupGuestRouter(t)
	mock.MatchExpectationsInOrder(false)

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM mas_nationality WHERE is_active = 1 ORDER BY nationality_name").
		WillReturnRows(sqlmock.NewRows(referenceColumns).AddRow(1, "Indian", "", created, "09:00:00", true))
	mock.ExpectQuery("FROM mas_city WHERE is_active = 1 ORDER BY city_name").
		WillReturnRows(sqlmock.NewRows(referenceColumns).AddRow(4, "Bengaluru", "", created, "09:00:00", true))
	mock.ExpectQuery("FROM mas_idproof WHERE is_active = 1 ORDER BY id_name").
		WillReturnRows(sqlmock.NewRows(referenceColumns).AddRow(2, "Passport", "PP", created, "09:00:00", true))

	w := performJSON(router, http.MethodGet, "/api/user/dropdown/data", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeObject(t, w)
	assert.Equal(t, []interface{}{map[string]interface{}{"nationality_id": float64(1), "nationality_name": "Indian"}}, body["nationalities"])
	assert.Equal(t, []interface{}{map[string]interface{}{"city_id": float64(4), "city_name": "Bengaluru"}}, body["cities"])
	assert.Equal(t, []interface{}{map[string]interface{}{"proof_id": float64(2), "id_name": "Passport"}}, body["idProofs"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_Upload(t *testing.T) {
	t.Run("No File", func(t *testing.T) {
		router, _, _ := setupGuestRouter(t)

		w := performMultipart(router, "/api/user/upload", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No file uploaded", decodeObject(t, w)["message"])
	})

	t.Run("Stored", func(t *testing.T) {
		router, _, root := setupGuestRouter(t)

		w := performMultipart(router, "/api/user/upload", map[string][]string{"hotel_code": {"seaview"}}, []multipartFile{
			{field: "file", name: "menu.png", contentType: "image/png"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeObject(t, w)
		assert.Equal(t, "File uploaded successfully", body["message"])
		assert.Equal(t, "seaview", body["hotelCode"])
		assert.Contains(t, body["url"], "http://localhost:8080/")

		var files int
		require.NoError(t, filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				files++
			}
			return err
		}))
		assert.Equal(t, 1, files)
	})

	t.Run("Not An Image", func(t *testing.T) {
		router, _, _ := setupGuestRouter(t)

		w := performMultipart(router, "/api/user/upload", nil, []multipartFile{
			{field: "file", name: "menu.pdf", contentType: "application/pdf"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Only image files are allowed.", decodeObject(t, w)["message"])
	})
}

func TestGuestHandler_CleanupFiles(t *testing.T) {
	router, _, root := setupGuestRouter(t)

	old := filepath.Join(root, "profile_images", "old.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.WriteFile(old, []byte("png"), 0o644))
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	w := performJSON(router, http.MethodPost, "/api/user/cleanup-files", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeObject(t, w)
	assert.Equal(t, "File cleanup completed successfully", body["message"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, float64(1), result["filesDeleted"])
	assert.NoFileExists(t, old)

	schedule := body["schedule"].(map[string]interface{})
	assert.Equal(t, false, schedule["running"])
	assert.Equal(t, float64(0), schedule["job_count"])
}
