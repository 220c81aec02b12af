package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/safeqr/emergency-backend/internal/utils"
)

// EmergencyDirectory resolves QR tokens to public emergency profiles
type EmergencyDirectory interface {
	Lookup(ctx context.Context, token string) (*services.EmergencyProfile, error)
}

// SOSTrigger dispatches emergency alerts for a QR token
type SOSTrigger interface {
	TriggerSOS(ctx context.Context, token string, location *models.Location, reporter *models.Reporter) (*services.SOSOutcome, error)
}

// IncidentHistory lists recorded incidents for an organization
type IncidentHistory interface {
	OrganizationIncidents(ctx context.Context, orgID uuid.UUID) ([]models.IncidentWithEmployee, error)
	EmployeeIncidents(ctx context.Context, orgID, employeeID uuid.UUID) ([]models.Incident, error)
}

// EmergencyHandler serves the public QR endpoints and incident history
type EmergencyHandler struct {
	directory  EmergencyDirectory
	dispatcher SOSTrigger
	incidents  IncidentHistory
	audit      AuditLogger
}

// NewEmergencyHandler creates a new emergency handler. audit may be nil.
func NewEmergencyHandler(directory EmergencyDirectory, dispatcher SOSTrigger, incidents IncidentHistory, audit AuditLogger) *EmergencyHandler {
	return &EmergencyHandler{
		directory:  directory,
		dispatcher: dispatcher,
		incidents:  incidents,
		audit:      audit,
	}
}

// IncidentSummary is the incident part of the SOS response
type IncidentSummary struct {
	ID        uuid.UUID        `json:"id"`
	ScannedAt time.Time        `json:"scannedAt"`
	SOSStatus models.SOSStatus `json:"sosStatus"`
}

// ContactAlert is the per-contact outcome shown to whoever triggered the SOS.
// Provider errors stay on the incident and are not returned here.
type ContactAlert struct {
	ContactName string `json:"contactName"`
	Success     bool   `json:"success"`
	ChannelUsed string `json:"channelUsed,omitempty"`
}

// SOSResponse is the body returned by POST /emergency/:token/sos
type SOSResponse struct {
	Message       string          `json:"message"`
	Incident      IncidentSummary `json:"incident"`
	AlertsSent    int             `json:"alertsSent"`
	TotalContacts int             `json:"totalContacts"`
	SMSResults    []ContactAlert  `json:"smsResults"`
}

// GetEmergencyProfile handles GET /api/v1/emergency/:token
func (h *EmergencyHandler) GetEmergencyProfile(c *gin.Context) {
	profile, err := h.directory.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Employee not found or QR code is invalid",
			})
			return
		}
		respondServiceError(c, "GetEmergencyProfile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"employee": profile})
}

// TriggerSOS handles POST /api/v1/emergency/:token/sos. The body is optional.
func (h *EmergencyHandler) TriggerSOS(c *gin.Context) {
	var req models.TriggerSOSRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	outcome, err := h.dispatcher.TriggerSOS(c.Request.Context(), c.Param("token"), req.Location, req.ScannedBy)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Employee not found or QR code is invalid",
			})
			return
		}
		respondServiceError(c, "TriggerSOS", err)
		return
	}

	safeLogSOSTrigger(c.Request.Context(), h.audit, outcome.Incident, outcome.AlertsSent, outcome.TotalContacts,
		utils.GetRealIP(c), utils.GetUserAgent(c))

	alerts := make([]ContactAlert, 0, len(outcome.Results))
	for _, result := range outcome.Results {
		alerts = append(alerts, ContactAlert{
			ContactName: result.ContactName,
			Success:     result.Success,
			ChannelUsed: result.ChannelUsed,
		})
	}

	c.JSON(http.StatusOK, SOSResponse{
		Message: sosMessage(outcome.AlertsSent, outcome.TotalContacts),
		Incident: IncidentSummary{
			ID:        outcome.Incident.ID,
			ScannedAt: outcome.Incident.ScannedAt,
			SOSStatus: outcome.Incident.SOSStatus,
		},
		AlertsSent:    outcome.AlertsSent,
		TotalContacts: outcome.TotalContacts,
		SMSResults:    alerts,
	})
}

func sosMessage(alertsSent, totalContacts int) string {
	switch {
	case totalContacts == 0:
		return "SOS recorded. No emergency contacts are on file."
	case alertsSent == 0:
		return "SOS recorded, but no emergency contact could be reached."
	default:
		return fmt.Sprintf("SOS alert sent to %d of %d emergency contacts.", alertsSent, totalContacts)
	}
}

// GetOrganizationIncidents handles GET /api/v1/emergency/incidents
func (h *EmergencyHandler) GetOrganizationIncidents(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	incidents, err := h.incidents.OrganizationIncidents(c.Request.Context(), actor.OrganizationID)
	if err != nil {
		respondServiceError(c, "GetOrganizationIncidents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(incidents), "incidents": incidents})
}

// GetEmployeeIncidents handles GET /api/v1/emergency/incidents/:employeeId
func (h *EmergencyHandler) GetEmployeeIncidents(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	employeeID, ok := uuidParam(c, "employeeId")
	if !ok {
		return
	}

	incidents, err := h.incidents.EmployeeIncidents(c.Request.Context(), actor.OrganizationID, employeeID)
	if err != nil {
		respondServiceError(c, "GetEmployeeIncidents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(incidents), "incidents": incidents})
}
