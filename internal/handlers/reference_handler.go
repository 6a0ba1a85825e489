package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ReferenceHandler serves one lookup table (city, nationality or ID proof).
// Request and response bodies are keyed by the table's own column names.
type ReferenceHandler struct {
	service *services.ReferenceService
	logger  *logrus.Logger
}

// NewReferenceHandler creates a new reference data handler
func NewReferenceHandler(service *services.ReferenceService, logger *logrus.Logger) *ReferenceHandler {
	return &ReferenceHandler{service: service, logger: logger}
}

// RegisterRoutes mounts view and view-all on public and the writes on admin
func (h *ReferenceHandler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/view", h.View)
	public.GET("/view-all", h.ViewAll)

	admin.POST("/add", h.Add)
	admin.PUT("/update/:id", h.Update)
	admin.PUT("/soft-delete/:id", h.SoftDelete)
	admin.PUT("/activate/:id", h.Activate)
}

// names reads the name (and short name) fields from a JSON body
func (h *ReferenceHandler) names(c *gin.Context) (string, string, bool) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return "", "", false
	}

	kind := h.service.Kind()
	name, _ := body[kind.NameColumn].(string)
	var shortName string
	if kind.HasShortName() {
		shortName, _ = body[kind.ShortNameColumn].(string)
	}
	return name, shortName, true
}

func (h *ReferenceHandler) id(c *gin.Context) (int64, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": h.service.Kind().Entity + " not found"})
	}
	return id, ok
}

func (h *ReferenceHandler) render(items []models.ReferenceItem) []map[string]interface{} {
	kind := h.service.Kind()
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, kind.Render(item))
	}
	return out
}

// Add handles POST /add
func (h *ReferenceHandler) Add(c *gin.Context) {
	name, shortName, ok := h.names(c)
	if !ok {
		return
	}

	id, err := h.service.Add(c.Request.Context(), name, shortName)
	if err != nil {
		respondError(c, h.logger, err, "Insert failed", false)
		return
	}

	h.logger.WithFields(logrus.Fields{"table": h.service.Kind().Table, "id": id}).Info("Reference row added")
	c.JSON(http.StatusCreated, gin.H{"message": h.service.Kind().Entity + " added successfully"})
}

// View handles GET /view
func (h *ReferenceHandler) View(c *gin.Context) {
	items, err := h.service.ViewActive(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Fetch failed", false)
		return
	}
	c.JSON(http.StatusOK, h.render(items))
}

// ViewAll handles GET /view-all
func (h *ReferenceHandler) ViewAll(c *gin.Context) {
	items, err := h.service.ViewAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Fetch failed", false)
		return
	}
	c.JSON(http.StatusOK, h.render(items))
}

// Update handles PUT /update/:id
func (h *ReferenceHandler) Update(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	name, shortName, ok := h.names(c)
	if !ok {
		return
	}

	if err := h.service.Update(c.Request.Context(), id, name, shortName); err != nil {
		respondError(c, h.logger, err, "Update failed", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.service.Kind().Entity + " updated successfully"})
}

// SoftDelete handles PUT /soft-delete/:id
func (h *ReferenceHandler) SoftDelete(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Deactivation failed", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.service.Kind().Entity + " deactivated successfully"})
}

// Activate handles PUT /activate/:id
func (h *ReferenceHandler) Activate(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}

	if err := h.service.Activate(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Activation failed", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.service.Kind().Entity + " activated successfully"})
}
