package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// Plan represents an organization's subscription plan
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// OrganizationSettings is the settings bag stored as JSONB
type OrganizationSettings struct {
	// SOSCascade notifies contacts in ascending priority order when true,
	// in list order when false. Every contact is notified either way.
	SOSCascade         bool `json:"sosCascade"`
	RequirePhotoUpdate bool `json:"requirePhotoUpdate"`
}

// DefaultOrganizationSettings returns the settings new organizations start with
func DefaultOrganizationSettings() OrganizationSettings {
	return OrganizationSettings{SOSCascade: true}
}

// Value implements the driver.Valuer interface
func (s OrganizationSettings) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan implements the sql.Scanner interface
func (s *OrganizationSettings) Scan(value interface{}) error {
	if value == nil {
		*s = DefaultOrganizationSettings()
		return nil
	}
	return jsonScan(value, s, "OrganizationSettings")
}

// Organization is the tenant that owns employees and incidents
type Organization struct {
	ID           uuid.UUID            `json:"id" db:"id"`
	Name         string               `json:"name" db:"name"`
	Email        string               `json:"email" db:"email"`
	PasswordHash string               `json:"-" db:"password_hash"`
	Plan         Plan                 `json:"plan" db:"plan"`
	Settings     OrganizationSettings `json:"settings" db:"settings"`
	CreatedAt    time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time            `json:"updatedAt" db:"updated_at"`
}

// OrganizationStats holds the live counts shown on the profile page
type OrganizationStats struct {
	TotalEmployees int `json:"totalEmployees"`
	TotalIncidents int `json:"totalIncidents"`
}

// DepartmentCount is one row of the dashboard department breakdown
type DepartmentCount struct {
	Department string `json:"department" db:"department"`
	Count      int    `json:"count" db:"count"`
}

// DashboardStats aggregates an organization's compliance and incident figures
type DashboardStats struct {
	TotalEmployees              int               `json:"totalEmployees"`
	ActiveEmployees             int               `json:"activeEmployees"`
	EmployeesWithUpdatedInfo    int               `json:"employeesWithUpdatedInfo"`
	EmployeesWithoutMedicalInfo int               `json:"employeesWithoutMedicalInfo"`
	ComplianceRate              int               `json:"complianceRate"`
	TotalIncidents              int               `json:"totalIncidents"`
	RecentIncidents             int               `json:"recentIncidents"`
	DepartmentBreakdown         []DepartmentCount `json:"departmentBreakdown"`
}
