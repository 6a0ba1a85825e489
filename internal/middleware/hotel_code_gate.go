package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// GuestFormPath is the guest registration page guarded by the hotel code gate
const GuestFormPath = "/userform"

// HotelContextKey holds the *models.Hotel admitted by the gate
const HotelContextKey = "hotel"

// HotelLookup finds an active hotel by code, returning nil when unknown
type HotelLookup interface {
	Lookup(ctx context.Context, code string) (*models.Hotel, error)
}

// HotelCodeGate admits requests to the guest form only for an active hotel
// whose QR code has been generated. Other paths pass through untouched.
func HotelCodeGate(hotels HotelLookup, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path != GuestFormPath {
			c.Next()
			return
		}

		code := strings.TrimSpace(c.Query("hotelCode"))
		if code == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Hotel code is required in URL parameters",
			})
			return
		}

		hotel, err := hotels.Lookup(c.Request.Context(), code)
		if err != nil {
			logger.WithError(err).WithField("hotel_code", code).Error("Hotel code lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to validate hotel code",
			})
			return
		}
		if hotel == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Invalid hotel code",
			})
			return
		}
		if !hotel.QRGenerated {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "QR code not generated for this hotel",
			})
			return
		}

		c.Set(HotelContextKey, hotel)
		c.Next()
	}
}

// GuestFormContext answers a gated /userform request with the admitted hotel
func GuestFormContext(c *gin.Context) {
	value, exists := c.Get(HotelContextKey)
	hotel, ok := value.(*models.Hotel)
	if !exists || !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Hotel code is required in URL parameters",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"hotelCode": hotel.Code,
		"hotelName": hotel.Name,
	})
}
