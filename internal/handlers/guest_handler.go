package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/guestdesk/registration-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// GuestHandler serves the /api/user routes: guest self-registration, the
// admin guest screens and the manual image cleanup.
type GuestHandler struct {
	registration *services.RegistrationService
	guests       *services.GuestService
	nationality  *services.ReferenceService
	city         *services.ReferenceService
	idProof      *services.ReferenceService
	cron         *services.CronService
	audit        *services.AuditService
	rateLimit    *services.RateLimitService
	logger       *logrus.Logger
}

// GuestHandlerDeps groups the services the guest handler calls
type GuestHandlerDeps struct {
	Registration *services.RegistrationService
	Guests       *services.GuestService
	Nationality  *services.ReferenceService
	City         *services.ReferenceService
	IDProof      *services.ReferenceService
	Cron         *services.CronService
	Audit        *services.AuditService
	RateLimit    *services.RateLimitService
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(deps GuestHandlerDeps, logger *logrus.Logger) *GuestHandler {
	return &GuestHandler{
		registration: deps.Registration,
		guests:       deps.Guests,
		nationality:  deps.Nationality,
		city:         deps.City,
		idProof:      deps.IDProof,
		cron:         deps.Cron,
		audit:        deps.Audit,
		rateLimit:    deps.RateLimit,
		logger:       logger,
	}
}

// RegisterRoutes mounts the guest form routes on public and the admin screens
// on admin. Both groups are expected at /api/user.
func (h *GuestHandler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/insert", h.Insert)
	public.GET("/dropdown/data", h.DropdownData)
	public.GET("/check-duplicate", h.CheckDuplicate)

	admin.GET("/getAllUsers", h.List)
	admin.GET("/hotel/:hotel_code", h.ListByHotel)
	admin.GET("/:id", h.Get)
	admin.PUT("/update/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
	admin.DELETE("/delete/:id", h.Delete)
	admin.POST("/upload", h.Upload)
	admin.POST("/cleanup-files", h.CleanupFiles)
}

func toUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// uploads returns the files of a multipart request. A request that is not
// multipart simply has none.
func uploads(c *gin.Context, field string) []services.Upload {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	headers := form.File[field]
	out := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		out = append(out, toUpload(fh))
	}
	return out
}

func firstUpload(c *gin.Context, field string) *services.Upload {
	files := uploads(c, field)
	if len(files) == 0 {
		return nil
	}
	return &files[0]
}

// formArray reads a repeated field sent either as name or name[]
func formArray(c *gin.Context, name string) []string {
	values := c.PostFormArray(name)
	return append(values, c.PostFormArray(name+"[]")...)
}

// Insert handles POST /insert, the guest self-registration form. Every
// submission counts against the client IP.
func (h *GuestHandler) Insert(c *gin.Context) {
	ip := utils.GetRealIP(c)
	if err := h.rateLimit.CheckRegistration(c.Request.Context(), ip); err != nil {
		h.logger.WithField("ip", ip).Warn("Guest registration rate limited")
		respondError(c, h.logger, err, "Internal Server Error", false)
		return
	}
	if err := h.rateLimit.RecordRegistration(c.Request.Context(), ip); err != nil {
		h.logger.WithError(err).Warn("Failed to record registration attempt")
	}

	var form services.RegistrationForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form data"})
		return
	}
	form.HotelCode = h.registration.EffectiveHotelCode(form.HotelCode, c.Query("hotelCode"))
	form.IDTypes = formArray(c, "idType")
	form.IDNumbers = formArray(c, "idNumber")

	result, err := h.registration.Register(c.Request.Context(), &form, firstUpload(c, "profilePhoto"), uploads(c, "idFile"))
	if err != nil {
		respondError(c, h.logger, err, "Internal Server Error", false)
		return
	}

	h.audit.LogGuest(c.Request.Context(), auditClient(c), services.ActionGuestInsert, result.UserID, map[string]interface{}{
		"hotel_code": result.HotelCode,
		"documents":  len(form.IDTypes),
	})
	c.JSON(http.StatusOK, gin.H{
		"message":      "User and ID proofs inserted successfully!",
		"userId":       result.UserID,
		"hotelCode":    result.HotelCode,
		"profileImage": result.ProfileImage,
	})
}

// Update handles PUT /update/:id
func (h *GuestHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	var form services.UpdateForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form data"})
		return
	}
	if form.Name == "" {
		form.Name = c.PostForm("fullName")
	}
	if form.NationalityID == "" {
		form.NationalityID = c.PostForm("nationality")
	}

	result, err := h.registration.Update(c.Request.Context(), id, &form, firstUpload(c, "profilePhoto"), uploads(c, "idFile"))
	if err != nil {
		respondError(c, h.logger, err, "Internal Server Error", false)
		return
	}

	h.audit.LogGuest(c.Request.Context(), auditClient(c), services.ActionGuestUpdate, result.UserID, map[string]interface{}{
		"hotel_code": result.HotelCode,
	})
	c.JSON(http.StatusOK, gin.H{
		"message":   "User updated successfully!",
		"userId":    result.UserID,
		"hotelCode": result.HotelCode,
	})
}

// List handles GET /getAllUsers with an optional hotel_code filter
func (h *GuestHandler) List(c *gin.Context) {
	guests, err := h.guests.List(c.Request.Context(), c.Query("hotel_code"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch users", false)
		return
	}
	c.JSON(http.StatusOK, guests)
}

// Get handles GET /:id
func (h *GuestHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	guest, err := h.guests.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch user", false)
		return
	}
	c.JSON(http.StatusOK, guest)
}

// Delete handles DELETE /:id and DELETE /delete/:id
func (h *GuestHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	if err := h.guests.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Internal Server Error", false)
		return
	}

	h.audit.LogGuest(c.Request.Context(), auditClient(c), services.ActionGuestDelete, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully!", "userId": id})
}

// ListByHotel handles GET /hotel/:hotel_code
func (h *GuestHandler) ListByHotel(c *gin.Context) {
	guests, err := h.guests.ListByHotel(c.Request.Context(), c.Param("hotel_code"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch users by hotel", false)
		return
	}
	c.JSON(http.StatusOK, guests)
}

func options(kind models.ReferenceKind, items []models.ReferenceItem) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, kind.Option(item))
	}
	return out
}

// DropdownData handles GET /dropdown/data
func (h *GuestHandler) DropdownData(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{}

	for key, service := range map[string]*services.ReferenceService{
		"nationalities": h.nationality,
		"cities":        h.city,
		"idProofs":      h.idProof,
	} {
		items, err := service.Options(ctx)
		if err != nil {
			respondError(c, h.logger, err, "Failed to fetch dropdown data", false)
			return
		}
		body[key] = options(service.Kind(), items)
	}

	c.JSON(http.StatusOK, body)
}

// CheckDuplicate handles GET /check-duplicate?field=&value=
func (h *GuestHandler) CheckDuplicate(c *gin.Context) {
	count, err := h.guests.CheckDuplicate(c.Request.Context(), c.Query("field"), c.Query("value"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to check duplicate", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": count > 0, "count": count})
}

// Upload handles POST /upload, a single image not tied to a guest
func (h *GuestHandler) Upload(c *gin.Context) {
	file := firstUpload(c, "file")
	if file == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	hotelCode := h.registration.EffectiveHotelCode(c.PostForm("hotel_code"), "")
	stored, err := h.registration.SaveMisc(file, hotelCode)
	if err != nil {
		respondError(c, h.logger, err, "File upload failed", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "File uploaded successfully",
		"url":       stored.URL,
		"hotelCode": hotelCode,
	})
}

// CleanupFiles handles POST /cleanup-files, an immediate retention sweep
func (h *GuestHandler) CleanupFiles(c *gin.Context) {
	result := h.cron.RunCleanupNow()
	h.audit.LogCleanup(c.Request.Context(), auditClient(c), result)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message":  "File cleanup completed successfully",
		"result":   result,
		"schedule": h.cron.GetJobStatus(),
	})
}
