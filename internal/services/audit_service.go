package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/utils"
)

// Audit actions
const (
	ActionSOSTriggered      = "sos_triggered"
	ActionLoginSuccess      = "login_success"
	ActionLoginFailed       = "login_failed"
	ActionQRRegenerated     = "qr_regenerated"
	ActionAccountDeleted    = "organization_deleted"
	ActionIncidentAbandoned = "incident_abandoned"
)

// AuditService writes security and SOS events to the audit_logs table
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditEvent is one row of audit_logs
type AuditEvent struct {
	OrganizationID *uuid.UUID
	ActorID        *uuid.UUID // nil for anonymous scanners
	Action         string
	EntityType     string
	EntityID       *uuid.UUID
	IPAddress      string
	UserAgent      string
	Details        map[string]interface{}
}

// LogSOSTrigger records who scanned a QR code and how the alert went
func (s *AuditService) LogSOSTrigger(ctx context.Context, incident *models.Incident, alertsSent, totalContacts int, ipAddress, userAgent string) error {
	details := map[string]interface{}{
		"employee_id":    incident.EmployeeID,
		"sos_status":     incident.SOSStatus,
		"alerts_sent":    alertsSent,
		"total_contacts": totalContacts,
		"has_location":   incident.Location.HasCoordinates() || incident.Location.Address != "",
		"device_info":    utils.ParseUserAgent(userAgent),
	}
	if incident.ScannedBy.Name != "" {
		details["reporter_name"] = incident.ScannedBy.Name
	}

	return s.logEvent(ctx, AuditEvent{
		OrganizationID: &incident.OrganizationID,
		Action:         ActionSOSTriggered,
		EntityType:     "incident",
		EntityID:       &incident.ID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		Details:        details,
	})
}

// LogLogin records a login attempt. actorID and orgID are nil when the
// credentials did not resolve to an account.
func (s *AuditService) LogLogin(ctx context.Context, actorID, orgID *uuid.UUID, role, email string, success bool, ipAddress, userAgent string) error {
	action := ActionLoginFailed
	if success {
		action = ActionLoginSuccess
	}

	return s.logEvent(ctx, AuditEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		EntityType:     role,
		EntityID:       actorID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		Details: map[string]interface{}{
			"email":       email,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogQRRegenerated records that an employee's previous QR code was revoked
func (s *AuditService) LogQRRegenerated(ctx context.Context, orgID, employeeID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(ctx, AuditEvent{
		OrganizationID: &orgID,
		ActorID:        &orgID,
		Action:         ActionQRRegenerated,
		EntityType:     "employee",
		EntityID:       &employeeID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	})
}

// LogAccountDeleted records an organization removing itself
func (s *AuditService) LogAccountDeleted(ctx context.Context, orgID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(ctx, AuditEvent{
		OrganizationID: &orgID,
		ActorID:        &orgID,
		Action:         ActionAccountDeleted,
		EntityType:     "organization",
		EntityID:       &orgID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	})
}

// LogIncidentAbandoned records an incident finalized by the reconciler
func (s *AuditService) LogIncidentAbandoned(ctx context.Context, incident models.Incident, note string) error {
	return s.logEvent(ctx, AuditEvent{
		OrganizationID: &incident.OrganizationID,
		Action:         ActionIncidentAbandoned,
		EntityType:     "incident",
		EntityID:       &incident.ID,
		Details:        map[string]interface{}{"note": note},
	})
}

func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	if event.Details == nil {
		event.Details = map[string]interface{}{}
	}
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (organization_id, actor_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		event.OrganizationID,
		event.ActorID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		string(details),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// CleanupOldAuditLogs removes audit logs older than the given age
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
