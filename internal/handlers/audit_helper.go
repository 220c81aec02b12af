package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditLogger records security-relevant events. A nil AuditLogger disables auditing.
type AuditLogger interface {
	LogSOSTrigger(ctx context.Context, incident *models.Incident, alertsSent, totalContacts int, ipAddress, userAgent string) error
	LogLogin(ctx context.Context, actorID, orgID *uuid.UUID, role, email string, success bool, ipAddress, userAgent string) error
	LogQRRegenerated(ctx context.Context, orgID, employeeID uuid.UUID, ipAddress, userAgent string) error
	LogAccountDeleted(ctx context.Context, orgID uuid.UUID, ipAddress, userAgent string) error
}

// logAuditError logs audit failures without failing the request
func logAuditError(operation string, err error) {
	if err != nil {
		logrus.WithError(err).WithField("operation", operation).Warn("AUDIT ERROR")
	}
}

func safeLogLogin(ctx context.Context, audit AuditLogger, actorID, orgID *uuid.UUID, role, email string, success bool, ipAddress, userAgent string) {
	if audit == nil {
		return
	}
	logAuditError("LogLogin", audit.LogLogin(ctx, actorID, orgID, role, email, success, ipAddress, userAgent))
}

func safeLogSOSTrigger(ctx context.Context, audit AuditLogger, incident *models.Incident, alertsSent, totalContacts int, ipAddress, userAgent string) {
	if audit == nil {
		return
	}
	logAuditError("LogSOSTrigger", audit.LogSOSTrigger(ctx, incident, alertsSent, totalContacts, ipAddress, userAgent))
}

func safeLogQRRegenerated(ctx context.Context, audit AuditLogger, orgID, employeeID uuid.UUID, ipAddress, userAgent string) {
	if audit == nil {
		return
	}
	logAuditError("LogQRRegenerated", audit.LogQRRegenerated(ctx, orgID, employeeID, ipAddress, userAgent))
}

func safeLogAccountDeleted(ctx context.Context, audit AuditLogger, orgID uuid.UUID, ipAddress, userAgent string) {
	if audit == nil {
		return
	}
	logAuditError("LogAccountDeleted", audit.LogAccountDeleted(ctx, orgID, ipAddress, userAgent))
}
