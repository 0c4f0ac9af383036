package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/utils"
)

// AuditService records privileged mutations and security events
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	AccountID  *uuid.UUID // nil for pre-authentication events
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{}
}

// LogLogin logs an authentication attempt
func (s *AuditService) LogLogin(accountID *uuid.UUID, email string, success bool, ipAddress, userAgent string) error {
	details := map[string]interface{}{
		"email":       email,
		"success":     success,
		"device_info": utils.ParseUserAgent(userAgent),
	}

	action := "login_failed"
	if success {
		action = "login_success"
	}

	return s.logEvent(AuditEvent{
		AccountID:  accountID,
		Action:     action,
		EntityType: "account",
		EntityID:   accountID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogRoleChange logs a role grant or revoke on an account
func (s *AuditService) LogRoleChange(callerID, targetID uuid.UUID, action, role, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		AccountID:  &callerID,
		Action:     action,
		EntityType: "account",
		EntityID:   &targetID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"role":        role,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogPaymentCompleted logs a booking payment status transition
func (s *AuditService) LogPaymentCompleted(callerID, bookingID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		AccountID:  &callerID,
		Action:     "payment_completed",
		EntityType: "booking",
		EntityID:   &bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

// LogCommissionPaid logs an admin commission payout
func (s *AuditService) LogCommissionPaid(callerID, commissionID uuid.UUID, amount float64, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		AccountID:  &callerID,
		Action:     "commission_paid",
		EntityType: "commission",
		EntityID:   &commissionID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"amount": amount,
		},
	})
}

func (s *AuditService) logEvent(event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (account_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	var details interface{}
	if event.Details != nil {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = raw
	}

	_, err := s.db.Exec(
		query,
		event.AccountID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}
