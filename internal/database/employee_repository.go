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

const employeeColumns = `
	id, organization_id, employee_code, name, email, password_hash,
	department, role, profile_photo, medical_info, emergency_contacts,
	qr_token, qr_generated_at, status, last_updated, created_at
`

// EmployeeRepository handles employee database operations
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// employeeCodeConstraint is the unique key on (organization_id, employee_code)
const employeeCodeConstraint = "employees_organization_code_key"

// Create inserts a new employee. Returns ErrDuplicateEmployeeCode when the
// code is taken within the organization and ErrDuplicate when the email or
// QR token is.
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	now := time.Now()
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	if emp.Status == "" {
		emp.Status = models.EmployeeStatusActive
	}
	if emp.EmergencyContacts == nil {
		emp.EmergencyContacts = models.EmergencyContacts{}
	}
	emp.MedicalInfo = emp.MedicalInfo.Normalized()
	emp.CreatedAt = now
	emp.LastUpdated = now

	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		emp.ID,
		emp.OrganizationID,
		emp.EmployeeCode,
		emp.Name,
		emp.Email,
		emp.PasswordHash,
		emp.Department,
		emp.Role,
		emp.ProfilePhoto,
		emp.MedicalInfo,
		emp.EmergencyContacts,
		emp.QRToken,
		emp.QRGeneratedAt,
		emp.Status,
		emp.LastUpdated,
		emp.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == employeeCodeConstraint {
				return ErrDuplicateEmployeeCode
			}
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}

	return nil
}

func (r *EmployeeRepository) getOne(ctx context.Context, what, query string, args ...interface{}) (*models.Employee, error) {
	var emp models.Employee
	err := r.db.GetContext(ctx, &emp, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get employee by %s: %w", what, err)
	}
	return &emp, nil
}

// GetByID retrieves an employee by ID. Returns nil, nil when not found.
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	return r.getOne(ctx, "id", query, id)
}

// GetActiveByEmail retrieves an active employee by login email
func (r *EmployeeRepository) GetActiveByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email = $1 AND status = 'active'`
	return r.getOne(ctx, "email", query, email)
}

// GetActiveByQRToken resolves a QR token to an active employee. Inactive or
// suspended employees are treated as not found.
func (r *EmployeeRepository) GetActiveByQRToken(ctx context.Context, token string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE qr_token = $1 AND status = 'active'`
	return r.getOne(ctx, "qr token", query, token)
}

// ListByOrganization returns every employee of an organization, newest first
func (r *EmployeeRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Employee, error) {
	employees := []models.Employee{}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE organization_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &employees, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

// Update persists the mutable profile fields and stamps last_updated
func (r *EmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	emp.LastUpdated = time.Now()
	emp.MedicalInfo = emp.MedicalInfo.Normalized()

	query := `
		UPDATE employees
		SET name = $1,
			department = $2,
			role = $3,
			profile_photo = $4,
			medical_info = $5,
			emergency_contacts = $6,
			status = $7,
			last_updated = $8
		WHERE id = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		emp.Name,
		emp.Department,
		emp.Role,
		emp.ProfilePhoto,
		emp.MedicalInfo,
		emp.EmergencyContacts,
		emp.Status,
		emp.LastUpdated,
		emp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}

	return requireRow(result)
}

// UpdateStatus changes the employee status
func (r *EmployeeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EmployeeStatus) error {
	query := `UPDATE employees SET status = $1, last_updated = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}

	return requireRow(result)
}

// UpdateQRToken replaces the QR token. The previous token stops resolving
// as soon as this returns.
func (r *EmployeeRepository) UpdateQRToken(ctx context.Context, id uuid.UUID, token string, generatedAt time.Time) error {
	query := `UPDATE employees SET qr_token = $1, qr_generated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, token, generatedAt, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update qr token: %w", err)
	}

	return requireRow(result)
}

// ExistsCode reports whether an employee code is taken within an organization
func (r *EmployeeRepository) ExistsCode(ctx context.Context, orgID uuid.UUID, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM employees WHERE organization_id = $1 AND employee_code = $2)`

	if err := r.db.GetContext(ctx, &exists, query, orgID, code); err != nil {
		return false, fmt.Errorf("failed to check employee code: %w", err)
	}
	return exists, nil
}

// ExistsEmail reports whether any employee uses this email
func (r *EmployeeRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM employees WHERE email = $1)`

	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("failed to check employee email: %w", err)
	}
	return exists, nil
}
