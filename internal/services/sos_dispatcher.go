package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/notify"
	"github.com/safeqr/emergency-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAttemptTimeout bounds a single channel send
	DefaultAttemptTimeout = 10 * time.Second

	// MaxEmergencyContacts bounds how many contacts one employee may register
	MaxEmergencyContacts = 10

	// dispatchSlack covers the incident writes around the sends
	dispatchSlack = time.Minute
)

// DispatchBudget is the longest a dispatch can run: every contact is tried
// in turn on the primary and then the fallback channel.
func DispatchBudget(attemptTimeout time.Duration) time.Duration {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return MaxEmergencyContacts*2*attemptTimeout + dispatchSlack
}

// DispatcherConfig configures the channel policy
type DispatcherConfig struct {
	Primary        notify.Channel
	Fallback       notify.Channel
	AttemptTimeout time.Duration
}

// SOSOutcome is returned to whoever triggered the alert
type SOSOutcome struct {
	Incident      *models.Incident
	AlertsSent    int
	TotalContacts int
	Results       models.ContactResults
}

// SOSDispatcher turns a QR scan into an incident and a round of alerts to
// the employee's emergency contacts
type SOSDispatcher struct {
	employees     EmployeeStore
	organizations OrganizationStore
	incidents     IncidentStore
	delivery      *contactDelivery
	deliveryLog   database.DeliveryLogRepository
	logger        logrus.FieldLogger
	now           func() time.Time
}

// NewSOSDispatcher creates a dispatcher. deliveryLog may be nil.
func NewSOSDispatcher(
	employees EmployeeStore,
	organizations OrganizationStore,
	incidents IncidentStore,
	messenger Messenger,
	deliveryLog database.DeliveryLogRepository,
	cfg DispatcherConfig,
	logger logrus.FieldLogger,
) *SOSDispatcher {
	if cfg.Primary == "" {
		cfg.Primary = notify.ChannelWhatsApp
	}
	if cfg.Fallback == "" {
		cfg.Fallback = notify.ChannelSMS
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}

	d := &SOSDispatcher{
		employees:     employees,
		organizations: organizations,
		incidents:     incidents,
		deliveryLog:   deliveryLog,
		logger:        logger,
		now:           time.Now,
	}
	d.delivery = &contactDelivery{
		messenger: messenger,
		phones:    validator.NewPhoneValidator(),
		primary:   cfg.Primary,
		fallback:  cfg.Fallback,
		timeout:   cfg.AttemptTimeout,
		now:       func() time.Time { return d.now() },
	}
	return d
}

// TriggerSOS resolves token to an active employee, records an incident and
// alerts every emergency contact. It returns ErrNotFound without creating an
// incident when the token does not resolve. Individual delivery failures are
// reported in the outcome, never as an error.
func (d *SOSDispatcher) TriggerSOS(ctx context.Context, token string, location *models.Location, reporter *models.Reporter) (*SOSOutcome, error) {
	employee, err := d.employees.GetActiveByQRToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve emergency token: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	org, err := d.organizations.GetByID(ctx, employee.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil {
		return nil, ErrNotFound
	}

	incident := &models.Incident{
		EmployeeID:     employee.ID,
		OrganizationID: employee.OrganizationID,
		ScannedAt:      d.now(),
		SOSStatus:      models.SOSStatusSent,
	}
	if location != nil {
		incident.Location = *location
	}
	if reporter != nil {
		incident.ScannedBy = *reporter
	}

	if err := d.incidents.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	logger := d.logger.WithFields(logrus.Fields{
		"incident_id":     incident.ID,
		"employee_id":     employee.ID,
		"organization_id": org.ID,
	})
	logger.Info("SOS triggered")

	// Alerts go out even if the scanner's request is cancelled
	dispatchCtx := context.WithoutCancel(ctx)

	message := ComposeEmergencyMessage(EmergencyMessage{
		EmployeeName:     employee.Name,
		EmployeeCode:     employee.EmployeeCode,
		OrganizationName: org.Name,
		Critical:         employee.MedicalInfo.Critical,
		Location:         location,
		Reporter:         reporter,
		Time:             incident.ScannedAt,
	})

	results := models.ContactResults{}
	for _, contact := range OrderContacts(employee.EmergencyContacts, org.Settings.SOSCascade) {
		if strings.TrimSpace(contact.Phone) == "" {
			continue
		}

		result := d.delivery.deliver(dispatchCtx, contact, message)
		results = append(results, result)

		logger.WithFields(logrus.Fields{
			"contact":  contact.Name,
			"success":  result.Success,
			"channel":  result.ChannelUsed,
			"attempts": len(result.Attempts),
		}).Info("Emergency contact processed")
	}

	status := models.StatusFor(results)
	incident.SOSStatus = status
	incident.Results = results

	if err := d.incidents.UpdateOutcome(dispatchCtx, incident.ID, status, results); err != nil {
		logger.WithError(err).Error("Failed to persist SOS outcome")
	} else {
		finalizedAt := d.now()
		incident.FinalizedAt = &finalizedAt
	}

	d.recordDeliveryLog(dispatchCtx, logger, incident, employee, results)

	outcome := &SOSOutcome{
		Incident:      incident,
		AlertsSent:    results.SuccessCount(),
		TotalContacts: len(results),
		Results:       results,
	}

	logger.WithFields(logrus.Fields{
		"status":         status,
		"alerts_sent":    outcome.AlertsSent,
		"total_contacts": outcome.TotalContacts,
	}).Info("SOS dispatch completed")

	return outcome, nil
}

func (d *SOSDispatcher) recordDeliveryLog(ctx context.Context, logger logrus.FieldLogger, incident *models.Incident, employee *models.Employee, results models.ContactResults) {
	if d.deliveryLog == nil {
		return
	}

	entries := []database.DeliveryLogEntry{}
	for _, result := range results {
		for _, attempt := range result.Attempts {
			entries = append(entries, database.DeliveryLogEntry{
				IncidentID:     incident.ID.String(),
				OrganizationID: incident.OrganizationID.String(),
				EmployeeID:     employee.ID.String(),
				ContactName:    result.ContactName,
				Phone:          result.Phone,
				Channel:        attempt.Channel,
				Provider:       attempt.Provider,
				Success:        attempt.Success,
				DeliveryID:     attempt.DeliveryID,
				Error:          attempt.Error,
				DurationMs:     attempt.DurationMs,
				AttemptedAt:    attempt.StartedAt,
			})
		}
	}

	if err := d.deliveryLog.Record(ctx, entries); err != nil {
		logger.WithError(err).Warn("Failed to record delivery attempts")
	}
}
