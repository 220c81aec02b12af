package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
)

const (
	// DefaultRecentIncidents is the dashboard list size when none is requested
	DefaultRecentIncidents = 10

	// EmployeeIncidentLimit bounds one employee's incident history
	EmployeeIncidentLimit = 50

	// OrganizationIncidentLimit bounds an organization's incident history
	OrganizationIncidentLimit = 100
)

// IncidentDeliveries is the stored outcome of one incident next to the raw
// channel attempts kept in the delivery log
type IncidentDeliveries struct {
	IncidentID         uuid.UUID                   `json:"incidentId"`
	SOSStatus          models.SOSStatus            `json:"sosStatus"`
	Finalized          bool                        `json:"finalized"`
	Results            models.ContactResults       `json:"results"`
	DeliveryLogEnabled bool                        `json:"deliveryLogEnabled"`
	Attempts           []database.DeliveryLogEntry `json:"attempts"`
}

// DashboardService computes organization statistics and incident listings
type DashboardService struct {
	organizations OrganizationStore
	employees     EmployeeStore
	incidents     IncidentStore
	deliveryLog   DeliveryLogReader
	now           func() time.Time
}

// NewDashboardService creates a new dashboard service. deliveryLog may be nil.
func NewDashboardService(organizations OrganizationStore, employees EmployeeStore, incidents IncidentStore, deliveryLog DeliveryLogReader) *DashboardService {
	return &DashboardService{
		organizations: organizations,
		employees:     employees,
		incidents:     incidents,
		deliveryLog:   deliveryLog,
		now:           time.Now,
	}
}

// Stats returns compliance and incident figures. Medical info counts as
// up to date when changed within six months; incidents are recent within 30 days.
func (s *DashboardService) Stats(ctx context.Context, orgID uuid.UUID) (*models.DashboardStats, error) {
	now := s.now()
	stats, err := s.organizations.GetDashboardStats(ctx, orgID, now.AddDate(0, -6, 0), now.AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	return stats, nil
}

// RecentIncidents returns the latest incidents with their employee summary
func (s *DashboardService) RecentIncidents(ctx context.Context, orgID uuid.UUID, limit int) ([]models.IncidentWithEmployee, error) {
	if limit <= 0 {
		limit = DefaultRecentIncidents
	}
	if limit > OrganizationIncidentLimit {
		limit = OrganizationIncidentLimit
	}
	return s.listOrganization(ctx, orgID, limit)
}

// OrganizationIncidents returns up to the latest 100 incidents
func (s *DashboardService) OrganizationIncidents(ctx context.Context, orgID uuid.UUID) ([]models.IncidentWithEmployee, error) {
	return s.listOrganization(ctx, orgID, OrganizationIncidentLimit)
}

// EmployeeIncidents returns up to the latest 50 incidents of an employee
// owned by orgID
func (s *DashboardService) EmployeeIncidents(ctx context.Context, orgID, employeeID uuid.UUID) ([]models.Incident, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}
	if employee.OrganizationID != orgID {
		return nil, ErrForbidden
	}

	incidents, err := s.incidents.ListByEmployee(ctx, employeeID, EmployeeIncidentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}

// IncidentDeliveries returns the delivery diagnostics of an incident owned
// by orgID. Attempts is empty when the delivery log is not configured.
func (s *DashboardService) IncidentDeliveries(ctx context.Context, orgID, incidentID uuid.UUID) (*IncidentDeliveries, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	if incident == nil {
		return nil, ErrNotFound
	}
	if incident.OrganizationID != orgID {
		return nil, ErrForbidden
	}

	results := incident.Results
	if results == nil {
		results = models.ContactResults{}
	}
	deliveries := &IncidentDeliveries{
		IncidentID: incident.ID,
		SOSStatus:  incident.SOSStatus,
		Finalized:  incident.FinalizedAt != nil,
		Results:    results,
		Attempts:   []database.DeliveryLogEntry{},
	}
	if s.deliveryLog == nil {
		return deliveries, nil
	}

	attempts, err := s.deliveryLog.ListByIncident(ctx, incident.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	deliveries.DeliveryLogEnabled = true
	deliveries.Attempts = attempts
	return deliveries, nil
}

func (s *DashboardService) listOrganization(ctx context.Context, orgID uuid.UUID, limit int) ([]models.IncidentWithEmployee, error) {
	incidents, err := s.incidents.ListByOrganization(ctx, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}
