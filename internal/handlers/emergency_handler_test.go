package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/middleware"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/safeqr/emergency-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	profiles map[string]*services.EmergencyProfile
}

func (f *fakeDirectory) Lookup(ctx context.Context, token string) (*services.EmergencyProfile, error) {
	if p, ok := f.profiles[token]; ok {
		return p, nil
	}
	return nil, services.ErrNotFound
}

type fakeTrigger struct {
	outcome  *services.SOSOutcome
	err      error
	location *models.Location
	reporter *models.Reporter
	calls    int
}

func (f *fakeTrigger) TriggerSOS(ctx context.Context, token string, location *models.Location, reporter *models.Reporter) (*services.SOSOutcome, error) {
	f.calls++
	f.location = location
	f.reporter = reporter
	return f.outcome, f.err
}

type fakeHistory struct {
	byOrg      []models.IncidentWithEmployee
	byEmployee []models.Incident
	err        error
}

func (f *fakeHistory) OrganizationIncidents(ctx context.Context, orgID uuid.UUID) ([]models.IncidentWithEmployee, error) {
	return f.byOrg, f.err
}

func (f *fakeHistory) EmployeeIncidents(ctx context.Context, orgID, employeeID uuid.UUID) ([]models.Incident, error) {
	return f.byEmployee, f.err
}

func janeDoeOutcome() *services.SOSOutcome {
	return &services.SOSOutcome{
		Incident: &models.Incident{
			ID:        uuid.New(),
			ScannedAt: time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC),
			SOSStatus: models.SOSStatusSent,
		},
		AlertsSent:    1,
		TotalContacts: 2,
		Results: models.ContactResults{
			{ContactName: "John", Phone: "+15551112222", Success: true, ChannelUsed: "sms", DeliveryID: "SM1",
				Attempts: []models.DeliveryAttempt{{Channel: "whatsapp", Error: "not a whatsapp user"}, {Channel: "sms", Success: true}}},
			{ContactName: "Mary", Phone: "12345", Success: false, Error: "invalid phone number format"},
		},
	}
}

func TestEmergencyHandler_GetEmergencyProfile(t *testing.T) {
	directory := &fakeDirectory{profiles: map[string]*services.EmergencyProfile{
		"tok": {Name: "Jane Doe", EmployeeCode: "E1", Organization: "Acme Corp"},
	}}
	h := NewEmergencyHandler(directory, &fakeTrigger{}, &fakeHistory{}, nil)
	router := setupTestRouter()
	router.GET("/emergency/:token", h.GetEmergencyProfile)

	w := doJSON(t, router, http.MethodGet, "/emergency/tok", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Employee map[string]interface{} `json:"employee"`
	}
	decode(t, w, &body)
	assert.Equal(t, "Jane Doe", body.Employee["name"])
	assert.Equal(t, "E1", body.Employee["employeeId"])
	assert.Equal(t, "Acme Corp", body.Employee["organization"])
	assert.NotContains(t, body.Employee, "qrToken")
	assert.NotContains(t, body.Employee, "passwordHash")

	w = doJSON(t, router, http.MethodGet, "/emergency/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "QR code is invalid")
}

func TestEmergencyHandler_TriggerSOS(t *testing.T) {
	trigger := &fakeTrigger{outcome: janeDoeOutcome()}
	audit := &fakeAudit{err: errors.New("audit down")}
	h := NewEmergencyHandler(&fakeDirectory{}, trigger, &fakeHistory{}, audit)
	router := setupTestRouter()
	router.POST("/emergency/:token/sos", h.TriggerSOS)

	lat, lng := 6.9271, 79.8612
	w := doJSON(t, router, http.MethodPost, "/emergency/tok/sos", models.TriggerSOSRequest{
		Location:  &models.Location{Latitude: &lat, Longitude: &lng},
		ScannedBy: &models.Reporter{Name: "Passer-by", Phone: "+15559990000"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SOSResponse
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.AlertsSent)
	assert.Equal(t, 2, resp.TotalContacts)
	assert.Equal(t, models.SOSStatusSent, resp.Incident.SOSStatus)
	assert.Equal(t, trigger.outcome.Incident.ID, resp.Incident.ID)
	require.Len(t, resp.SMSResults, 2)
	assert.Equal(t, ContactAlert{ContactName: "John", Success: true, ChannelUsed: "sms"}, resp.SMSResults[0])
	assert.Equal(t, ContactAlert{ContactName: "Mary", Success: false}, resp.SMSResults[1])
	assert.Equal(t, "SOS alert sent to 1 of 2 emergency contacts.", resp.Message)

	// Provider diagnostics stay on the incident
	assert.NotContains(t, w.Body.String(), "not a whatsapp user")
	assert.NotContains(t, w.Body.String(), "+15551112222")

	require.NotNil(t, trigger.location)
	assert.Equal(t, lat, *trigger.location.Latitude)
	assert.Equal(t, "Passer-by", trigger.reporter.Name)

	// Audit failure does not fail the request
	require.Len(t, audit.calls, 1)
	assert.Equal(t, services.ActionSOSTriggered, audit.calls[0].Action)
}

func TestEmergencyHandler_TriggerSOS_EmptyBody(t *testing.T) {
	trigger := &fakeTrigger{outcome: janeDoeOutcome()}
	h := NewEmergencyHandler(&fakeDirectory{}, trigger, &fakeHistory{}, nil)
	router := setupTestRouter()
	router.POST("/emergency/:token/sos", h.TriggerSOS)

	w := doJSON(t, router, http.MethodPost, "/emergency/tok/sos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, trigger.location)
	assert.Nil(t, trigger.reporter)
}

func TestEmergencyHandler_TriggerSOS_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"Unknown token", services.ErrNotFound, http.StatusNotFound},
		{"Storage failure", errors.New("failed to create incident: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEmergencyHandler(&fakeDirectory{}, &fakeTrigger{err: tt.err}, &fakeHistory{}, nil)
			router := setupTestRouter()
			router.POST("/emergency/:token/sos", h.TriggerSOS)

			w := doJSON(t, router, http.MethodPost, "/emergency/tok/sos", nil)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}

	t.Run("Malformed body", func(t *testing.T) {
		trigger := &fakeTrigger{}
		h := NewEmergencyHandler(&fakeDirectory{}, trigger, &fakeHistory{}, nil)
		router := setupTestRouter()
		router.POST("/emergency/:token/sos", h.TriggerSOS)

		w := doJSON(t, router, http.MethodPost, "/emergency/tok/sos", "not an object")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, trigger.calls)
	})
}

func TestSOSMessage(t *testing.T) {
	assert.Equal(t, "SOS recorded. No emergency contacts are on file.", sosMessage(0, 0))
	assert.Equal(t, "SOS recorded, but no emergency contact could be reached.", sosMessage(0, 3))
	assert.Equal(t, "SOS alert sent to 3 of 3 emergency contacts.", sosMessage(3, 3))
}

func TestEmergencyHandler_Incidents(t *testing.T) {
	orgID := uuid.New()
	org := middleware.UserContext{ID: orgID, OrganizationID: orgID, Role: jwt.RoleOrganization}
	history := &fakeHistory{
		byOrg:      []models.IncidentWithEmployee{{}, {}},
		byEmployee: []models.Incident{{ID: uuid.New()}},
	}
	h := NewEmergencyHandler(&fakeDirectory{}, &fakeTrigger{}, history, nil)

	router := setupTestRouter()
	router.GET("/incidents", asUser(org), h.GetOrganizationIncidents)
	router.GET("/incidents/:employeeId", asUser(org), h.GetEmployeeIncidents)

	w := doJSON(t, router, http.MethodGet, "/incidents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 2, list.Count)

	w = doJSON(t, router, http.MethodGet, "/incidents/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = doJSON(t, router, http.MethodGet, "/incidents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	history.err = services.ErrForbidden
	w = doJSON(t, router, http.MethodGet, "/incidents/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
