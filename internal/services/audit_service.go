package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// Audit actions
const (
	ActionAdminLogin       = "admin_login"
	ActionAdminLoginFailed = "admin_login_failed"
	ActionAdminLogout      = "admin_logout"
	ActionTokenRefresh     = "token_refresh"
	ActionGuestInsert      = "guest_insert"
	ActionGuestUpdate      = "guest_update"
	ActionGuestDelete      = "guest_delete"
	ActionHotelAdd         = "hotel_add"
	ActionHotelUpdate      = "hotel_update"
	ActionHotelDelete      = "hotel_delete"
	ActionQRGenerate       = "qr_generate"
	ActionQRDelete         = "qr_delete"
	ActionImageCleanup     = "image_cleanup"
)

// AuditService writes admin and guest record events to audit_logs. A failed
// write is logged and never returned to the caller.
type AuditService struct {
	db      database.DB
	enabled bool
	logger  *logrus.Logger
}

// NewAuditService creates a new audit service. When enabled is false every
// call is a no-op.
func NewAuditService(db database.DB, enabled bool, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:      db,
		enabled: enabled,
		logger:  logger,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	AdminID    *uuid.UUID             // nil for guest-form and failed login events
	Action     string                 // e.g. "admin_login", "guest_update"
	EntityType string                 // "admin", "guest", "hotel", "qr_code", "images"
	EntityID   string                 // guest id, hotel code, file name
	IPAddress  string                 // client IP address
	UserAgent  string                 // client user agent
	Details    map[string]interface{} // stored as JSONB
}

// Client identifies who sent a request
type Client struct {
	AdminID   *uuid.UUID
	IPAddress string
	UserAgent string
}

// LogLogin logs an admin login attempt
func (s *AuditService) LogLogin(ctx context.Context, client Client, username string, success bool, reason string) {
	details := map[string]interface{}{
		"username": username,
		"success":  success,
	}

	action := ActionAdminLogin
	if !success {
		action = ActionAdminLoginFailed
		details["failure_reason"] = reason
	}

	s.logEvent(ctx, client, AuditEvent{
		Action:     action,
		EntityType: "admin",
		EntityID:   username,
		Details:    details,
	})
}

// LogLogout logs an admin logout
func (s *AuditService) LogLogout(ctx context.Context, client Client, logoutAll bool) {
	s.logEvent(ctx, client, AuditEvent{
		Action:     ActionAdminLogout,
		EntityType: "admin",
		Details:    map[string]interface{}{"logout_all": logoutAll},
	})
}

// LogTokenRefresh logs a refresh token use
func (s *AuditService) LogTokenRefresh(ctx context.Context, client Client, success bool) {
	s.logEvent(ctx, client, AuditEvent{
		Action:     ActionTokenRefresh,
		EntityType: "admin",
		Details:    map[string]interface{}{"success": success},
	})
}

// LogGuest logs an insert, update or delete of a guest record
func (s *AuditService) LogGuest(ctx context.Context, client Client, action string, guestID int64, details map[string]interface{}) {
	s.logEvent(ctx, client, AuditEvent{
		Action:     action,
		EntityType: "guest",
		EntityID:   strconv.FormatInt(guestID, 10),
		Details:    details,
	})
}

// LogHotel logs a change to the hotel registry or its QR codes
func (s *AuditService) LogHotel(ctx context.Context, client Client, action, entityID string, details map[string]interface{}) {
	entityType := "hotel"
	if action == ActionQRGenerate || action == ActionQRDelete {
		entityType = "qr_code"
	}

	s.logEvent(ctx, client, AuditEvent{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}

// LogCleanup logs a manual image cleanup run
func (s *AuditService) LogCleanup(ctx context.Context, client Client, result CleanupResult) {
	s.logEvent(ctx, client, AuditEvent{
		Action:     ActionImageCleanup,
		EntityType: "images",
		Details: map[string]interface{}{
			"files_deleted": result.FilesDeleted,
			"dirs_removed":  result.DirsRemoved,
			"errors":        result.Errors,
		},
	})
}

// logEvent is the internal method that writes to the audit_logs table
func (s *AuditService) logEvent(ctx context.Context, client Client, event AuditEvent) {
	if s == nil || !s.enabled {
		return
	}

	event.AdminID = client.AdminID
	event.IPAddress = client.IPAddress
	event.UserAgent = client.UserAgent
	if event.Details == nil {
		event.Details = make(map[string]interface{})
	}
	event.Details["device_info"] = utils.ParseUserAgent(client.UserAgent)

	if err := s.insert(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":    event.Action,
			"entity_id": event.EntityID,
		}).Error("Failed to write audit log")
	}
}

func (s *AuditService) insert(ctx context.Context, event AuditEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (admin_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	var entityID interface{}
	if event.EntityID != "" {
		entityID = event.EntityID
	}

	_, err = s.db.ExecContext(
		ctx,
		query,
		event.AdminID,
		event.Action,
		event.EntityType,
		entityID,
		event.IPAddress,
		event.UserAgent,
		string(details),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
