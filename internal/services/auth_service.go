package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// OrganizationSession is returned after organization register or login
type OrganizationSession struct {
	Organization *models.Organization
	Token        string
	ExpiresIn    int64 // seconds
}

// EmployeeSession is returned after employee login
type EmployeeSession struct {
	Employee  *models.Employee
	Token     string
	ExpiresIn int64 // seconds
}

// AuthService handles organization and employee authentication
type AuthService struct {
	organizations OrganizationStore
	employees     EmployeeStore
	jwtService    *jwt.Service
	bcryptCost    int
}

// NewAuthService creates a new auth service
func NewAuthService(organizations OrganizationStore, employees EmployeeStore, jwtService *jwt.Service, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		organizations: organizations,
		employees:     employees,
		jwtService:    jwtService,
		bcryptCost:    bcryptCost,
	}
}

func (s *AuthService) expiresIn() int64 {
	return int64(s.jwtService.TokenExpiry().Seconds())
}

// RegisterOrganization creates an organization with default settings and signs it in
func (s *AuthService) RegisterOrganization(ctx context.Context, req models.RegisterOrganizationRequest) (*OrganizationSession, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.organizations.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check organization email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Plan:         models.PlanFree,
		Settings:     models.DefaultOrganizationSettings(),
	}
	if err := s.organizations.Create(ctx, org); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register organization: %w", err)
	}

	token, err := s.jwtService.GenerateAccessToken(org.ID, org.ID, jwt.RoleOrganization)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &OrganizationSession{Organization: org, Token: token, ExpiresIn: s.expiresIn()}, nil
}

// LoginOrganization checks an organization's credentials
func (s *AuthService) LoginOrganization(ctx context.Context, email, password string) (*OrganizationSession, error) {
	org, err := s.organizations.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	if org == nil || !checkPassword(org.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(org.ID, org.ID, jwt.RoleOrganization)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &OrganizationSession{Organization: org, Token: token, ExpiresIn: s.expiresIn()}, nil
}

// LoginEmployee checks an active employee's credentials
func (s *AuthService) LoginEmployee(ctx context.Context, email, password string) (*EmployeeSession, error) {
	employee, err := s.employees.GetActiveByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	if employee == nil || !checkPassword(employee.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(employee.ID, employee.OrganizationID, jwt.RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &EmployeeSession{Employee: employee, Token: token, ExpiresIn: s.expiresIn()}, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
