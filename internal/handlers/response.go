package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/middleware"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/guestdesk/registration-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// EnvironmentKey is the context key holding the deployment environment.
// Raw error text is only returned to clients outside production.
const EnvironmentKey = "environment"

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(kind, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Rate limit errors are a 429 with a
// Retry-After header. Service errors carry their own status and message;
// anything else is a 500 with fallback as the message. When
// withSuccess is set the body also carries "success": false.
func respondError(c *gin.Context, logger *logrus.Logger, err error, fallback string, withSuccess bool) {
	body := gin.H{}
	if withSuccess {
		body["success"] = false
	}

	var limitErr *services.RateLimitError
	if errors.As(err, &limitErr) {
		retryAfter := int(math.Ceil(time.Until(limitErr.RetryAfter).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		body["message"] = limitErr.Message
		body["retryAfter"] = retryAfter
		c.JSON(http.StatusTooManyRequests, body)
		return
	}

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status := statusFor(svcErr.Kind)
		body["message"] = svcErr.Message
		for k, v := range svcErr.Fields {
			body[k] = v
		}
		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithField("path", c.Request.URL.Path).Error(svcErr.Message)
		}
		c.JSON(status, body)
		return
	}

	logger.WithError(err).WithField("path", c.Request.URL.Path).Error(fallback)
	body["message"] = fallback
	if c.GetString(EnvironmentKey) != "production" {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// auditClient describes the caller for audit records
func auditClient(c *gin.Context) services.Client {
	client := services.Client{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
	if admin, ok := middleware.GetAdminContext(c); ok {
		id := admin.AdminID
		client.AdminID = &id
	}
	return client
}

// idParam parses a positive integer path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
