package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/jwt"
	"github.com/safeqr/emergency-backend/pkg/validator"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Role           jwt.Role
}

// QRCodeInfo is the token and the public URL encoded in an employee's QR code
type QRCodeInfo struct {
	QRToken string `json:"qrToken"`
	QRURL   string `json:"qrUrl"`
}

// EmployeeProfile is an employee's own view of their record
type EmployeeProfile struct {
	*models.Employee
	Organization *models.Organization `json:"organization"`
}

// EmployeeService manages employee records for organizations and for
// employees editing their own profile
type EmployeeService struct {
	employees     EmployeeStore
	organizations OrganizationStore
	phones        *validator.PhoneValidator
	bcryptCost    int
	frontendURL   string
	now           func() time.Time
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(employees EmployeeStore, organizations OrganizationStore, bcryptCost int, frontendURL string) *EmployeeService {
	return &EmployeeService{
		employees:     employees,
		organizations: organizations,
		phones:        validator.NewPhoneValidator(),
		bcryptCost:    bcryptCost,
		frontendURL:   frontendURL,
		now:           time.Now,
	}
}

// Create enrolls an employee in orgID and issues the first QR token
func (s *EmployeeService) Create(ctx context.Context, orgID uuid.UUID, req models.CreateEmployeeRequest) (*models.Employee, error) {
	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil {
		return nil, ErrNotFound
	}

	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.EmployeeCode)

	taken, err := s.employees.ExistsEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check employee email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	taken, err = s.employees.ExistsCode(ctx, orgID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check employee code: %w", err)
	}
	if taken {
		return nil, ErrEmployeeCodeTaken
	}

	medical := models.MergeMedicalInfo(models.MedicalInfo{}, req.MedicalInfo)
	if err := validator.ValidateBloodGroup(medical.Critical.BloodGroup); err != nil {
		return nil, err
	}
	if err := s.validateContacts(req.EmergencyContacts); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token, err := GenerateQRToken(code, orgID, now)
	if err != nil {
		return nil, err
	}

	contacts := models.EmergencyContacts(req.EmergencyContacts)
	if contacts == nil {
		contacts = models.EmergencyContacts{}
	}

	employee := &models.Employee{
		OrganizationID:    orgID,
		EmployeeCode:      code,
		Name:              strings.TrimSpace(req.Name),
		Email:             email,
		PasswordHash:      hash,
		Department:        strings.TrimSpace(req.Department),
		Role:              strings.TrimSpace(req.Role),
		MedicalInfo:       medical,
		EmergencyContacts: contacts,
		QRToken:           token,
		QRGeneratedAt:     &now,
		Status:            models.EmployeeStatusActive,
	}

	if err := s.employees.Create(ctx, employee); err != nil {
		if errors.Is(err, database.ErrDuplicateEmployeeCode) {
			return nil, ErrEmployeeCodeTaken
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}
	return employee, nil
}

// List returns every employee of an organization, newest first
func (s *EmployeeService) List(ctx context.Context, orgID uuid.UUID) ([]models.Employee, error) {
	employees, err := s.employees.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

// Get returns one employee owned by orgID
func (s *EmployeeService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error) {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}
	if employee.OrganizationID != orgID {
		return nil, ErrForbidden
	}
	return employee, nil
}

// Update applies req on behalf of actor. The owning organization may change
// every field. An employee updating their own record may change only the
// photo, medical info and emergency contacts.
func (s *EmployeeService) Update(ctx context.Context, actor Actor, id uuid.UUID, req models.UpdateEmployeeRequest) (*models.Employee, error) {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	isOrganization := actor.Role == jwt.RoleOrganization && employee.OrganizationID == actor.ID
	isSelf := actor.Role == jwt.RoleEmployee && employee.ID == actor.ID
	if !isOrganization && !isSelf {
		return nil, ErrForbidden
	}

	if isOrganization {
		if req.Status != "" && !req.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		if req.Name != "" {
			employee.Name = strings.TrimSpace(req.Name)
		}
		if req.Department != "" {
			employee.Department = strings.TrimSpace(req.Department)
		}
		if req.Role != "" {
			employee.Role = strings.TrimSpace(req.Role)
		}
		if req.Status != "" {
			employee.Status = req.Status
		}
	}

	if err := s.applyProfileChanges(employee, req.ProfilePhoto, req.MedicalInfo, req.EmergencyContacts); err != nil {
		return nil, err
	}

	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	return employee, nil
}

// GetProfile returns the signed-in employee's record with their organization
func (s *EmployeeService) GetProfile(ctx context.Context, employeeID uuid.UUID) (*EmployeeProfile, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	org, err := s.organizations.GetByID(ctx, employee.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return &EmployeeProfile{Employee: employee, Organization: org}, nil
}

// UpdateProfile lets an employee change their photo, medical info and contacts
func (s *EmployeeService) UpdateProfile(ctx context.Context, employeeID uuid.UUID, req models.UpdateProfileRequest) (*models.Employee, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	if err := s.applyProfileChanges(employee, req.ProfilePhoto, req.MedicalInfo, req.EmergencyContacts); err != nil {
		return nil, err
	}

	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return employee, nil
}

// Deactivate soft-deletes an employee. Their QR code stops resolving.
func (s *EmployeeService) Deactivate(ctx context.Context, orgID, id uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return err
	}

	if err := s.employees.UpdateStatus(ctx, id, models.EmployeeStatusInactive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}
	return nil
}

// QRCode returns the current token and URL for an employee's QR code
func (s *EmployeeService) QRCode(ctx context.Context, orgID, id uuid.UUID) (*QRCodeInfo, error) {
	employee, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return &QRCodeInfo{QRToken: employee.QRToken, QRURL: QRCodeURL(s.frontendURL, employee.QRToken)}, nil
}

// RegenerateQR issues a new token. The previous token stops resolving at once.
func (s *EmployeeService) RegenerateQR(ctx context.Context, orgID, id uuid.UUID) (*QRCodeInfo, error) {
	employee, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token, err := GenerateQRToken(employee.EmployeeCode, employee.OrganizationID, now)
	if err != nil {
		return nil, err
	}

	if err := s.employees.UpdateQRToken(ctx, employee.ID, token, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to regenerate qr token: %w", err)
	}
	return &QRCodeInfo{QRToken: token, QRURL: QRCodeURL(s.frontendURL, token)}, nil
}

func (s *EmployeeService) applyProfileChanges(employee *models.Employee, photo string, medical *models.MedicalInfoUpdate, contacts []models.EmergencyContact) error {
	if photo != "" {
		employee.ProfilePhoto = photo
	}
	if medical != nil {
		merged := models.MergeMedicalInfo(employee.MedicalInfo, medical)
		if err := validator.ValidateBloodGroup(merged.Critical.BloodGroup); err != nil {
			return err
		}
		employee.MedicalInfo = merged
	}
	if contacts != nil {
		if err := s.validateContacts(contacts); err != nil {
			return err
		}
		employee.EmergencyContacts = models.EmergencyContacts(contacts)
	}
	return nil
}

// validateContacts rejects numbers the dispatcher could never dial and
// lists longer than MaxEmergencyContacts. A contact without a phone is
// allowed and is never alerted.
func (s *EmployeeService) validateContacts(contacts []models.EmergencyContact) error {
	if len(contacts) > MaxEmergencyContacts {
		return fmt.Errorf("%w: at most %d allowed", ErrTooManyContacts, MaxEmergencyContacts)
	}

	phones := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		if strings.TrimSpace(contact.Phone) != "" {
			phones = append(phones, contact.Phone)
		}
	}

	results := s.phones.ValidateMultiple(phones)
	for _, phone := range phones {
		if err := results[phone]; err != nil {
			return fmt.Errorf("%w: %q (%v)", ErrInvalidContactPhone, phone, err)
		}
	}
	return nil
}
