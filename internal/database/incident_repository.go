package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
)

const incidentColumns = `
	i.id, i.employee_id, i.organization_id, i.scanned_at, i.location, i.scanned_by,
	i.sos_status, i.acknowledgments, i.notes, i.results, i.finalized_at, i.created_at
`

// IncidentRepository handles incident database operations
type IncidentRepository struct {
	db DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create inserts a new incident with its provisional status
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	if incident.ScannedAt.IsZero() {
		incident.ScannedAt = time.Now()
	}
	if incident.SOSStatus == "" {
		incident.SOSStatus = models.SOSStatusSent
	}
	if incident.Acknowledgments == nil {
		incident.Acknowledgments = models.Acknowledgments{}
	}
	if incident.Results == nil {
		incident.Results = models.ContactResults{}
	}
	incident.CreatedAt = incident.ScannedAt

	query := `
		INSERT INTO incidents (
			id, employee_id, organization_id, scanned_at, location, scanned_by,
			sos_status, acknowledgments, notes, results, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		incident.ID,
		incident.EmployeeID,
		incident.OrganizationID,
		incident.ScannedAt,
		incident.Location,
		incident.ScannedBy,
		incident.SOSStatus,
		incident.Acknowledgments,
		incident.Notes,
		incident.Results,
		incident.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}

	return nil
}

// UpdateOutcome writes the final status and per-contact results in one
// statement. An incident is finalized once; later calls return sql.ErrNoRows.
func (r *IncidentRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, status models.SOSStatus, results models.ContactResults) error {
	query := `
		UPDATE incidents
		SET sos_status = $1, results = $2, finalized_at = $3
		WHERE id = $4 AND finalized_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, status, results, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update incident outcome: %w", err)
	}

	return requireRow(result)
}

// GetByID retrieves an incident. Returns nil, nil when not found.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1`

	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return &incident, nil
}

// ListByEmployee returns an employee's incidents, most recent first
func (r *IncidentRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit int) ([]models.Incident, error) {
	incidents := []models.Incident{}
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents i
		WHERE i.employee_id = $1
		ORDER BY i.scanned_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &incidents, query, employeeID, limit); err != nil {
		return nil, fmt.Errorf("failed to list employee incidents: %w", err)
	}
	return incidents, nil
}

// ListByOrganization returns an organization's incidents joined with the
// employee summary, most recent first
func (r *IncidentRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit int) ([]models.IncidentWithEmployee, error) {
	incidents := []models.IncidentWithEmployee{}
	query := `
		SELECT ` + incidentColumns + `,
			COALESCE(e.name, '') AS employee_name,
			COALESCE(e.employee_code, '') AS employee_code,
			COALESCE(e.department, '') AS employee_department,
			COALESCE(e.profile_photo, '') AS employee_profile_photo
		FROM incidents i
		LEFT JOIN employees e ON e.id = i.employee_id
		WHERE i.organization_id = $1
		ORDER BY i.scanned_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &incidents, query, orgID, limit); err != nil {
		return nil, fmt.Errorf("failed to list organization incidents: %w", err)
	}

	for i := range incidents {
		incidents[i].EmployeeSummary.ID = incidents[i].EmployeeID
	}
	return incidents, nil
}

// ListUnfinalized returns incidents created before olderThan whose outcome
// was never written, oldest first
func (r *IncidentRepository) ListUnfinalized(ctx context.Context, olderThan time.Time, limit int) ([]models.Incident, error) {
	incidents := []models.Incident{}
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents i
		WHERE i.finalized_at IS NULL AND i.created_at < $1
		ORDER BY i.created_at ASC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &incidents, query, olderThan, limit); err != nil {
		return nil, fmt.Errorf("failed to list unfinalized incidents: %w", err)
	}
	return incidents, nil
}

// MarkFailed finalizes an abandoned incident as failed with a note
func (r *IncidentRepository) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	query := `
		UPDATE incidents
		SET sos_status = $1, notes = $2, finalized_at = $3
		WHERE id = $4 AND finalized_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, models.SOSStatusFailed, note, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark incident failed: %w", err)
	}

	return requireRow(result)
}
