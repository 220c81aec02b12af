package services

import (
	"context"
	"fmt"

	"github.com/safeqr/emergency-backend/internal/models"
)

// EmergencyProfile is what anyone holding the QR code may see. It never
// carries the password hash or the token.
type EmergencyProfile struct {
	Name              string                    `json:"name"`
	EmployeeCode      string                    `json:"employeeId"`
	Department        string                    `json:"department"`
	Role              string                    `json:"role"`
	ProfilePhoto      string                    `json:"profilePhoto"`
	Organization      string                    `json:"organization"`
	MedicalInfo       models.MedicalInfo        `json:"medicalInfo"`
	EmergencyContacts []models.EmergencyContact `json:"emergencyContacts"`
}

// DirectoryService answers public token lookups
type DirectoryService struct {
	employees     EmployeeStore
	organizations OrganizationStore
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(employees EmployeeStore, organizations OrganizationStore) *DirectoryService {
	return &DirectoryService{employees: employees, organizations: organizations}
}

// Lookup resolves a token to the emergency profile of an active employee.
// It is read-only.
func (s *DirectoryService) Lookup(ctx context.Context, token string) (*EmergencyProfile, error) {
	employee, err := s.employees.GetActiveByQRToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve emergency token: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	org, err := s.organizations.GetByID(ctx, employee.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil {
		return nil, ErrNotFound
	}

	contacts := []models.EmergencyContact(employee.EmergencyContacts)
	if contacts == nil {
		contacts = []models.EmergencyContact{}
	}

	return &EmergencyProfile{
		Name:              employee.Name,
		EmployeeCode:      employee.EmployeeCode,
		Department:        employee.Department,
		Role:              employee.Role,
		ProfilePhoto:      employee.ProfilePhoto,
		Organization:      org.Name,
		MedicalInfo:       employee.MedicalInfo.Normalized(),
		EmergencyContacts: contacts,
	}, nil
}
