package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/notify"
)

// EmployeeStore is implemented by database.EmployeeRepository
type EmployeeStore interface {
	Create(ctx context.Context, emp *models.Employee) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.Employee, error)
	GetActiveByQRToken(ctx context.Context, token string) (*models.Employee, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Employee, error)
	Update(ctx context.Context, emp *models.Employee) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.EmployeeStatus) error
	UpdateQRToken(ctx context.Context, id uuid.UUID, token string, generatedAt time.Time) error
	ExistsCode(ctx context.Context, orgID uuid.UUID, code string) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
}

// OrganizationStore is implemented by database.OrganizationRepository
type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByEmail(ctx context.Context, email string) (*models.Organization, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, name string, settings models.OrganizationSettings) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActiveEmployees(ctx context.Context, id uuid.UUID) (int, error)
	CountIncidents(ctx context.Context, id uuid.UUID, since time.Time) (int, error)
	GetDashboardStats(ctx context.Context, id uuid.UUID, updatedSince, recentSince time.Time) (*models.DashboardStats, error)
}

// IncidentStore is implemented by database.IncidentRepository
type IncidentStore interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateOutcome(ctx context.Context, id uuid.UUID, status models.SOSStatus, results models.ContactResults) error
	ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit int) ([]models.Incident, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit int) ([]models.IncidentWithEmployee, error)
	ListUnfinalized(ctx context.Context, olderThan time.Time, limit int) ([]models.Incident, error)
	MarkFailed(ctx context.Context, id uuid.UUID, note string) error
}

// DeliveryLogReader is implemented by database.DeliveryLogRepository
type DeliveryLogReader interface {
	ListByIncident(ctx context.Context, incidentID string) ([]database.DeliveryLogEntry, error)
}

// Messenger sends a message over a named channel. notify.Router implements it.
type Messenger interface {
	Send(ctx context.Context, channel notify.Channel, to, message string) (string, error)
	Provider(channel notify.Channel) string
}
