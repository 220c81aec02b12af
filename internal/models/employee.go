package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// EmployeeStatus represents the lifecycle state of an employee
type EmployeeStatus string

const (
	EmployeeStatusActive    EmployeeStatus = "active"
	EmployeeStatusInactive  EmployeeStatus = "inactive"
	EmployeeStatusSuspended EmployeeStatus = "suspended"
)

// IsValid reports whether s is a known status
func (s EmployeeStatus) IsValid() bool {
	switch s {
	case EmployeeStatusActive, EmployeeStatusInactive, EmployeeStatusSuspended:
		return true
	}
	return false
}

// EmergencyContact is a person notified when the employee's QR code triggers an SOS
type EmergencyContact struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Phone    string `json:"phone"`
	Priority int    `json:"priority"`
}

// EmergencyContacts is an ordered contact list stored as JSONB
type EmergencyContacts []EmergencyContact

// Value implements the driver.Valuer interface
func (c EmergencyContacts) Value() (driver.Value, error) {
	if c == nil {
		return jsonValue([]EmergencyContact{})
	}
	return jsonValue([]EmergencyContact(c))
}

// Scan implements the sql.Scanner interface
func (c *EmergencyContacts) Scan(value interface{}) error {
	if value == nil {
		*c = EmergencyContacts{}
		return nil
	}
	return jsonScan(value, c, "EmergencyContacts")
}

// CriticalMedicalInfo is shown first to a responder
type CriticalMedicalInfo struct {
	BloodGroup        string   `json:"bloodGroup"`
	Allergies         []string `json:"allergies"`
	ChronicConditions []string `json:"chronicConditions"`
}

// ImportantMedicalInfo lists treatments a responder should know about
type ImportantMedicalInfo struct {
	CurrentMedications []string `json:"currentMedications"`
	RecentSurgeries    []string `json:"recentSurgeries"`
}

// ContextMedicalInfo holds free-text background details
type ContextMedicalInfo struct {
	InsuranceDetails string `json:"insuranceDetails"`
	DoctorContact    string `json:"doctorContact"`
}

// MedicalInfo groups the three independently optional sub-groups
type MedicalInfo struct {
	Critical  CriticalMedicalInfo  `json:"critical"`
	Important ImportantMedicalInfo `json:"important"`
	Context   ContextMedicalInfo   `json:"context"`
}

// MedicalInfoUpdate carries a partial medical info change. A nil sub-group
// means "not sent" and keeps the stored value.
type MedicalInfoUpdate struct {
	Critical  *CriticalMedicalInfo  `json:"critical"`
	Important *ImportantMedicalInfo `json:"important"`
	Context   *ContextMedicalInfo   `json:"context"`
}

// Normalized replaces nil lists with empty ones so every sub-group
// serializes as a complete structure
func (m MedicalInfo) Normalized() MedicalInfo {
	m.Critical.Allergies = nonNil(m.Critical.Allergies)
	m.Critical.ChronicConditions = nonNil(m.Critical.ChronicConditions)
	m.Important.CurrentMedications = nonNil(m.Important.CurrentMedications)
	m.Important.RecentSurgeries = nonNil(m.Important.RecentSurgeries)
	return m
}

// MergeMedicalInfo applies update on top of stored. Sub-groups omitted
// from the update keep their stored value and are never nulled.
func MergeMedicalInfo(stored MedicalInfo, update *MedicalInfoUpdate) MedicalInfo {
	merged := stored
	if update != nil {
		if update.Critical != nil {
			merged.Critical = *update.Critical
		}
		if update.Important != nil {
			merged.Important = *update.Important
		}
		if update.Context != nil {
			merged.Context = *update.Context
		}
	}
	return merged.Normalized()
}

// Value implements the driver.Valuer interface
func (m MedicalInfo) Value() (driver.Value, error) {
	return jsonValue(m.Normalized())
}

// Scan implements the sql.Scanner interface
func (m *MedicalInfo) Scan(value interface{}) error {
	if err := jsonScan(value, m, "MedicalInfo"); err != nil {
		return err
	}
	*m = m.Normalized()
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Employee represents an enrolled employee
type Employee struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	OrganizationID    uuid.UUID         `json:"organizationId" db:"organization_id"`
	EmployeeCode      string            `json:"employeeId" db:"employee_code"`
	Name              string            `json:"name" db:"name"`
	Email             string            `json:"email" db:"email"`
	PasswordHash      string            `json:"-" db:"password_hash"`
	Department        string            `json:"department" db:"department"`
	Role              string            `json:"role" db:"role"`
	ProfilePhoto      string            `json:"profilePhoto" db:"profile_photo"`
	MedicalInfo       MedicalInfo       `json:"medicalInfo" db:"medical_info"`
	EmergencyContacts EmergencyContacts `json:"emergencyContacts" db:"emergency_contacts"`
	QRToken           string            `json:"-" db:"qr_token"`
	QRGeneratedAt     *time.Time        `json:"qrGeneratedAt,omitempty" db:"qr_generated_at"`
	Status            EmployeeStatus    `json:"status" db:"status"`
	LastUpdated       time.Time         `json:"lastUpdated" db:"last_updated"`
	CreatedAt         time.Time         `json:"createdAt" db:"created_at"`
}

// IsActive reports whether the employee's QR code is usable
func (e *Employee) IsActive() bool {
	return e.Status == EmployeeStatusActive
}

// EmployeeSummary is the employee projection attached to incident listings.
// ID is filled from the incident's employee_id after scanning.
type EmployeeSummary struct {
	ID           uuid.UUID `json:"id" db:"-"`
	Name         string    `json:"name" db:"employee_name"`
	EmployeeCode string    `json:"employeeId" db:"employee_code"`
	Department   string    `json:"department" db:"employee_department"`
	ProfilePhoto string    `json:"profilePhoto,omitempty" db:"employee_profile_photo"`
}
