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

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("record already exists")

// ErrDuplicateEmployeeCode is returned when an employee code is already used
// within the organization. It wraps ErrDuplicate.
var ErrDuplicateEmployeeCode = fmt.Errorf("%w: employee code", ErrDuplicate)

const organizationColumns = `id, name, email, password_hash, plan, settings, created_at, updated_at`

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	db DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts a new organization. ID, plan, settings and timestamps are
// filled in when empty.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	now := time.Now()
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if org.Plan == "" {
		org.Plan = models.PlanFree
	}
	org.CreatedAt = now
	org.UpdatedAt = now

	query := `
		INSERT INTO organizations (
			id, name, email, password_hash, plan, settings, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Email,
		org.PasswordHash,
		org.Plan,
		org.Settings,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetByID retrieves an organization by ID. Returns nil, nil when not found.
func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	err := r.db.GetContext(ctx, &org, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// GetByEmail retrieves an organization by login email. Returns nil, nil when not found.
func (r *OrganizationRepository) GetByEmail(ctx context.Context, email string) (*models.Organization, error) {
	var org models.Organization
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE email = $1`

	err := r.db.GetContext(ctx, &org, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization by email: %w", err)
	}

	return &org, nil
}

// UpdateSettings stores a new name and settings bag
func (r *OrganizationRepository) UpdateSettings(ctx context.Context, id uuid.UUID, name string, settings models.OrganizationSettings) error {
	query := `
		UPDATE organizations
		SET name = $1, settings = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, name, settings, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update organization settings: %w", err)
	}

	return requireRow(result)
}

// UpdatePassword stores a new password hash
func (r *OrganizationRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE organizations SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update organization password: %w", err)
	}

	return requireRow(result)
}

// Delete removes the organization together with all of its incidents and
// employees in a single transaction
func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incidents WHERE organization_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete incidents: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE organization_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete employees: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountActiveEmployees counts employees with status active
func (r *OrganizationRepository) CountActiveEmployees(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM employees WHERE organization_id = $1 AND status = 'active'`

	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return count, nil
}

// CountIncidents counts incidents scanned at or after since. A zero since counts all.
func (r *OrganizationRepository) CountIncidents(ctx context.Context, id uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM incidents WHERE organization_id = $1 AND scanned_at >= $2`

	if err := r.db.GetContext(ctx, &count, query, id, since); err != nil {
		return 0, fmt.Errorf("failed to count incidents: %w", err)
	}
	return count, nil
}

// employeeCompliance is the row returned by the dashboard compliance query
type employeeCompliance struct {
	Active          int `db:"active"`
	UpdatedRecently int `db:"updated_recently"`
	MissingBlood    int `db:"missing_blood_group"`
}

// GetDashboardStats collects the organization dashboard figures. Employees
// count as up to date when last_updated >= updatedSince; incidents count as
// recent when scanned_at >= recentSince.
func (r *OrganizationRepository) GetDashboardStats(ctx context.Context, id uuid.UUID, updatedSince, recentSince time.Time) (*models.DashboardStats, error) {
	var compliance employeeCompliance
	complianceQuery := `
		SELECT
			COUNT(*) AS active,
			COUNT(*) FILTER (WHERE last_updated >= $2) AS updated_recently,
			COUNT(*) FILTER (WHERE COALESCE(medical_info->'critical'->>'bloodGroup', '') = '') AS missing_blood_group
		FROM employees
		WHERE organization_id = $1 AND status = 'active'
	`
	if err := r.db.GetContext(ctx, &compliance, complianceQuery, id, updatedSince); err != nil {
		return nil, fmt.Errorf("failed to get employee compliance: %w", err)
	}

	total, err := r.CountIncidents(ctx, id, time.Time{})
	if err != nil {
		return nil, err
	}

	recent, err := r.CountIncidents(ctx, id, recentSince)
	if err != nil {
		return nil, err
	}

	breakdown := []models.DepartmentCount{}
	breakdownQuery := `
		SELECT department, COUNT(*) AS count
		FROM employees
		WHERE organization_id = $1 AND status = 'active'
		GROUP BY department
		ORDER BY count DESC, department ASC
	`
	if err := r.db.SelectContext(ctx, &breakdown, breakdownQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get department breakdown: %w", err)
	}

	stats := &models.DashboardStats{
		TotalEmployees:              compliance.Active,
		ActiveEmployees:             compliance.Active,
		EmployeesWithUpdatedInfo:    compliance.UpdatedRecently,
		EmployeesWithoutMedicalInfo: compliance.MissingBlood,
		TotalIncidents:              total,
		RecentIncidents:             recent,
		DepartmentBreakdown:         breakdown,
	}
	if compliance.Active > 0 {
		stats.ComplianceRate = int(float64(compliance.UpdatedRecently)/float64(compliance.Active)*100 + 0.5)
	}

	return stats, nil
}

// requireRow maps an update that touched nothing to sql.ErrNoRows
func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
