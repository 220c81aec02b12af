package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Stats(t *testing.T) {
	orgs := newFakeOrganizations()
	orgs.stats = &models.DashboardStats{TotalEmployees: 3, ComplianceRate: 67}
	svc := NewDashboardService(orgs, newFakeEmployees(), newFakeIncidents(), nil)

	stats, err := svc.Stats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 67, stats.ComplianceRate)
}

func TestDashboardService_RecentIncidents(t *testing.T) {
	orgID := uuid.New()
	incidents := newFakeIncidents()
	for i := 0; i < 120; i++ {
		inc := models.IncidentWithEmployee{}
		inc.Incident.ID = uuid.New()
		inc.OrganizationID = orgID
		incidents.byOrg = append(incidents.byOrg, inc)
	}
	svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(), incidents, nil)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"Default", 0, DefaultRecentIncidents},
		{"Requested", 5, 5},
		{"Capped", 500, OrganizationIncidentLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.RecentIncidents(context.Background(), orgID, tt.limit)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	all, err := svc.OrganizationIncidents(context.Background(), orgID)
	require.NoError(t, err)
	assert.Len(t, all, OrganizationIncidentLimit)

	none, err := svc.OrganizationIncidents(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDashboardService_EmployeeIncidents(t *testing.T) {
	orgID := uuid.New()
	emp := &models.Employee{ID: uuid.New(), OrganizationID: orgID, Status: models.EmployeeStatusActive}
	incidents := newFakeIncidents()
	for i := 0; i < 60; i++ {
		require.NoError(t, incidents.Create(context.Background(), &models.Incident{
			EmployeeID:     emp.ID,
			OrganizationID: orgID,
			ScannedAt:      fixedNow.Add(time.Duration(i) * time.Minute),
		}))
	}
	svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(emp), incidents, nil)

	got, err := svc.EmployeeIncidents(context.Background(), orgID, emp.ID)
	require.NoError(t, err)
	assert.Len(t, got, EmployeeIncidentLimit)

	_, err = svc.EmployeeIncidents(context.Background(), uuid.New(), emp.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.EmployeeIncidents(context.Background(), orgID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardService_IncidentDeliveries(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	incident := &models.Incident{
		EmployeeID:     uuid.New(),
		OrganizationID: orgID,
		SOSStatus:      models.SOSStatusSent,
		ScannedAt:      fixedNow,
	}
	incidents := newFakeIncidents()
	require.NoError(t, incidents.Create(ctx, incident))

	log := &fakeDeliveryLog{entries: []database.DeliveryLogEntry{
		{IncidentID: incident.ID.String(), ContactName: "John", Channel: "whatsapp", Error: "not on whatsapp"},
		{IncidentID: incident.ID.String(), ContactName: "John", Channel: "sms", Success: true, DeliveryID: "SM1"},
		{IncidentID: uuid.NewString(), ContactName: "Other", Channel: "sms", Success: true},
	}}

	t.Run("Lists attempts for the incident", func(t *testing.T) {
		svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(), incidents, log)

		got, err := svc.IncidentDeliveries(ctx, orgID, incident.ID)
		require.NoError(t, err)
		assert.True(t, got.DeliveryLogEnabled)
		assert.False(t, got.Finalized)
		assert.Equal(t, models.SOSStatusSent, got.SOSStatus)
		require.Len(t, got.Attempts, 2)
		assert.Equal(t, "whatsapp", got.Attempts[0].Channel)
		assert.Equal(t, "SM1", got.Attempts[1].DeliveryID)
	})

	t.Run("Delivery log disabled", func(t *testing.T) {
		svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(), incidents, nil)

		got, err := svc.IncidentDeliveries(ctx, orgID, incident.ID)
		require.NoError(t, err)
		assert.False(t, got.DeliveryLogEnabled)
		assert.Empty(t, got.Attempts)
		assert.NotNil(t, got.Results)
	})

	t.Run("Other organization is forbidden", func(t *testing.T) {
		svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(), incidents, log)

		_, err := svc.IncidentDeliveries(ctx, uuid.New(), incident.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Unknown incident", func(t *testing.T) {
		svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(), incidents, log)

		_, err := svc.IncidentDeliveries(ctx, orgID, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delivery log error", func(t *testing.T) {
		svc := NewDashboardService(newFakeOrganizations(), newFakeEmployees(), incidents, &fakeDeliveryLog{err: errors.New("mongo down")})

		_, err := svc.IncidentDeliveries(ctx, orgID, incident.ID)
		assert.Error(t, err)
	})
}
