package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/middleware"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/guestdesk/registration-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	authService  *services.AdminAuthService
	auditService *services.AuditService
	rateLimit    *services.RateLimitService
	logger       *logrus.Logger
}

// NewAuthHandler creates a new admin auth handler. rateLimit may be nil.
func NewAuthHandler(
	authService *services.AdminAuthService,
	auditService *services.AuditService,
	rateLimit *services.RateLimitService,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		auditService: auditService,
		rateLimit:    rateLimit,
		logger:       logger,
	}
}

// RegisterRoutes mounts login on api, the refresh token routes on auth and
// the routes needing an access token on protected
func (h *AuthHandler) RegisterRoutes(api, auth, protected *gin.RouterGroup) {
	api.POST("/login", h.Login)

	auth.POST("/refresh", h.RefreshToken)
	auth.POST("/logout", h.Logout)

	protected.POST("/logout-all", h.LogoutAll)
	protected.GET("/me", h.Me)
}

func tokenResponse(resp *models.AdminLoginResponse) gin.H {
	return gin.H{
		"success":      true,
		"message":      resp.Message,
		"accessToken":  resp.AccessToken,
		"refreshToken": resp.RefreshToken,
		"expiresIn":    resp.ExpiresIn,
		"admin":        resp.Admin,
	}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username and password are required"})
		return
	}

	ctx := c.Request.Context()
	client := auditClient(c)
	if err := h.rateLimit.CheckLogin(ctx, req.Username, client.IPAddress); err != nil {
		h.logger.WithFields(logrus.Fields{
			"username": req.Username,
			"ip":       client.IPAddress,
		}).Warn("Admin login rate limited")
		respondError(c, h.logger, err, "Server error", true)
		return
	}

	resp, admin, err := h.authService.Login(ctx, req.Username, req.Password, client.IPAddress, client.UserAgent)
	if admin != nil {
		id := admin.ID
		client.AdminID = &id
	}
	if err != nil {
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			h.auditService.LogLogin(ctx, client, req.Username, false, svcErr.Message)
		}
		if errors.Is(err, services.ErrUnauthorized) {
			if recordErr := h.rateLimit.RecordLoginFailure(ctx, req.Username, client.IPAddress); recordErr != nil {
				h.logger.WithError(recordErr).Warn("Failed to record login attempt")
			}
		}
		h.logger.WithFields(logrus.Fields{
			"username": req.Username,
			"ip":       client.IPAddress,
			"error":    err.Error(),
		}).Warn("Admin login failed")
		respondError(c, h.logger, err, "Server error", true)
		return
	}

	if err := h.rateLimit.ClearLogin(ctx, req.Username); err != nil {
		h.logger.WithError(err).Warn("Failed to clear login attempts")
	}
	h.auditService.LogLogin(ctx, client, req.Username, true, "")
	h.logger.WithFields(logrus.Fields{
		"admin_id": admin.ID,
		"username": admin.Username,
	}).Info("Admin login successful")

	c.JSON(http.StatusOK, tokenResponse(resp))
}

// RefreshToken handles POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.AdminRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Refresh token is required"})
		return
	}

	client := auditClient(c)
	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.auditService.LogTokenRefresh(c.Request.Context(), client, false)
		respondError(c, h.logger, err, "Failed to refresh token", true)
		return
	}

	id := resp.Admin.ID
	client.AdminID = &id
	h.auditService.LogTokenRefresh(c.Request.Context(), client, true)
	c.JSON(http.StatusOK, tokenResponse(resp))
}

// Logout handles POST /api/auth/logout. The refresh token is revoked; the
// access token simply expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.AdminRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Refresh token is required"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, h.logger, err, "Logout failed", true)
		return
	}

	h.auditService.LogLogout(c.Request.Context(), auditClient(c), false)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// LogoutAll handles POST /api/auth/logout-all, revoking every session of the
// calling admin
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	adminCtx, ok := middleware.GetAdminContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), adminCtx.AdminID); err != nil {
		respondError(c, h.logger, err, "Logout failed", true)
		return
	}

	h.auditService.LogLogout(c.Request.Context(), auditClient(c), true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out from all sessions"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	adminCtx, ok := middleware.GetAdminContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	admin, err := h.authService.GetAdminProfile(c.Request.Context(), adminCtx.AdminID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch profile", true)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"admin":   admin,
		"roles":   adminCtx.Roles,
		"ip":      utils.GetRealIP(c),
	})
}
