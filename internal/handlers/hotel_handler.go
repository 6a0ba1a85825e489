package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/guestdesk/registration-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// HotelHandler serves the hotel registry and the QR code routes under
// /api/qr-codes
type HotelHandler struct {
	hotels      *services.HotelService
	qr          *services.QRService
	audit       *services.AuditService
	frontendURL string
	logger      *logrus.Logger
}

// NewHotelHandler creates a new hotel handler. frontendURL is the origin
// encoded in QR codes; when empty the request's own origin is used.
func NewHotelHandler(
	hotels *services.HotelService,
	qr *services.QRService,
	audit *services.AuditService,
	frontendURL string,
	logger *logrus.Logger,
) *HotelHandler {
	return &HotelHandler{
		hotels:      hotels,
		qr:          qr,
		audit:       audit,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// RegisterRoutes mounts the guest-facing reads on public and the rest on admin
func (h *HotelHandler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/predefined-hotels", h.PredefinedHotels)
	public.GET("/generated-codes", h.GeneratedCodes)
	public.GET("/check-code/:hotelCode", h.CheckCode)
	public.GET("/download/:filename", h.Download)
	public.GET("/preview/:filename", h.Preview)

	admin.POST("/hotels", h.AddHotel)
	admin.PUT("/hotels/:code", h.UpdateHotel)
	admin.DELETE("/hotels/:code", h.DeleteHotel)
	admin.POST("/generate", h.Generate)
	admin.GET("/generate-all", h.GenerateAll)
	admin.GET("/list", h.List)
	admin.DELETE("/delete/:filename", h.Delete)
}

func (h *HotelHandler) baseURL(c *gin.Context) string {
	if h.frontendURL != "" {
		return h.frontendURL
	}
	return utils.RequestOrigin(c)
}

func (h *HotelHandler) fail(c *gin.Context, err error, fallback string) {
	respondError(c, h.logger, err, fallback, true)
}

// PredefinedHotels handles GET /predefined-hotels
func (h *HotelHandler) PredefinedHotels(c *gin.Context) {
	hotels, err := h.hotels.PredefinedHotels(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch hotels")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"predefinedHotels": hotels,
		"count":            len(hotels),
	})
}

// GeneratedCodes handles GET /generated-codes
func (h *HotelHandler) GeneratedCodes(c *gin.Context) {
	codes, err := h.hotels.GeneratedCodes(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch generated codes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "generatedCodes": codes})
}

// CheckCode handles GET /check-code/:hotelCode
func (h *HotelHandler) CheckCode(c *gin.Context) {
	status, err := h.hotels.CheckCode(c.Request.Context(), c.Param("hotelCode"))
	if err != nil {
		h.fail(c, err, "Failed to check hotel code")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"hotelCode":   status.HotelCode,
		"isValid":     status.IsValid,
		"isGenerated": status.IsGenerated,
		"message":     status.Message,
	})
}

// AddHotel handles POST /hotels
func (h *HotelHandler) AddHotel(c *gin.Context) {
	var req models.CreateHotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	hotel, err := h.hotels.AddHotel(c.Request.Context(), req.Code, req.Name)
	if err != nil {
		h.fail(c, err, "Failed to add hotel")
		return
	}

	h.audit.LogHotel(c.Request.Context(), auditClient(c), services.ActionHotelAdd, hotel.Code, map[string]interface{}{"name": hotel.Name})
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Hotel added successfully",
		"hotel":   hotel,
	})
}

// UpdateHotel handles PUT /hotels/:code
func (h *HotelHandler) UpdateHotel(c *gin.Context) {
	var req models.UpdateHotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	code := c.Param("code")
	if err := h.hotels.UpdateHotel(c.Request.Context(), code, req.Name); err != nil {
		h.fail(c, err, "Failed to update hotel")
		return
	}

	h.audit.LogHotel(c.Request.Context(), auditClient(c), services.ActionHotelUpdate, code, map[string]interface{}{"name": strings.TrimSpace(req.Name)})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Hotel updated successfully"})
}

// DeleteHotel handles DELETE /hotels/:code
func (h *HotelHandler) DeleteHotel(c *gin.Context) {
	code := c.Param("code")
	if err := h.hotels.DeleteHotel(c.Request.Context(), code); err != nil {
		h.fail(c, err, "Failed to delete hotel")
		return
	}

	h.audit.LogHotel(c.Request.Context(), auditClient(c), services.ActionHotelDelete, code, nil)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Hotel deleted successfully"})
}

// Generate handles POST /generate
func (h *HotelHandler) Generate(c *gin.Context) {
	var req models.GenerateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Hotel code is required"})
		return
	}

	rec, err := h.qr.Generate(c.Request.Context(), req.HotelCode, req.HotelName, h.baseURL(c))
	if err != nil {
		h.fail(c, err, "Failed to generate QR code")
		return
	}

	h.audit.LogHotel(c.Request.Context(), auditClient(c), services.ActionQRGenerate, rec.HotelCode, map[string]interface{}{"file": rec.FileName})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "QR code generated successfully",
		"qrCode":  rec,
	})
}

// GenerateAll handles GET /generate-all
func (h *HotelHandler) GenerateAll(c *gin.Context) {
	records, err := h.qr.GenerateAll(c.Request.Context(), h.baseURL(c))
	if err != nil {
		h.fail(c, err, "Failed to generate QR codes")
		return
	}

	client := auditClient(c)
	for _, rec := range records {
		h.audit.LogHotel(c.Request.Context(), client, services.ActionQRGenerate, rec.HotelCode, map[string]interface{}{"file": rec.FileName})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Generated %d QR codes successfully", len(records)),
		"qrCodes": records,
		"total":   len(records),
	})
}

// List handles GET /list
func (h *HotelHandler) List(c *gin.Context) {
	listing, err := h.qr.List(c.Request.Context(), h.baseURL(c))
	if err != nil {
		h.fail(c, err, "Failed to list QR codes")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"qrCodes":          listing.QRCodes,
		"predefinedHotels": listing.PredefinedHotels,
		"generatedCodes":   listing.GeneratedCodes,
	})
}

// Delete handles DELETE /delete/:filename
func (h *HotelHandler) Delete(c *gin.Context) {
	fileName := c.Param("filename")
	if err := h.qr.Delete(c.Request.Context(), fileName); err != nil {
		h.fail(c, err, "Failed to delete QR code")
		return
	}

	h.audit.LogHotel(c.Request.Context(), auditClient(c), services.ActionQRDelete, fileName, nil)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "QR code deleted successfully"})
}

// Download handles GET /download/:filename
func (h *HotelHandler) Download(c *gin.Context) {
	fileName := c.Param("filename")
	path, err := h.qr.Open(c.Request.Context(), fileName, "download")
	if err != nil {
		h.fail(c, err, "Failed to download QR code")
		return
	}
	c.FileAttachment(path, fileName)
}

// Preview handles GET /preview/:filename
func (h *HotelHandler) Preview(c *gin.Context) {
	path, err := h.qr.Open(c.Request.Context(), c.Param("filename"), "preview")
	if err != nil {
		h.fail(c, err, "Failed to preview QR code")
		return
	}
	c.File(path)
}
