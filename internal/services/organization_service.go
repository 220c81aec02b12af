package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
)

// OrganizationProfile is an organization with its live counts
type OrganizationProfile struct {
	Organization *models.Organization    `json:"organization"`
	Stats        models.OrganizationStats `json:"stats"`
}

// OrganizationService manages an organization's own account
type OrganizationService struct {
	organizations OrganizationStore
	bcryptCost    int
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(organizations OrganizationStore, bcryptCost int) *OrganizationService {
	return &OrganizationService{organizations: organizations, bcryptCost: bcryptCost}
}

// Profile returns the organization with its active employee and incident counts
func (s *OrganizationService) Profile(ctx context.Context, orgID uuid.UUID) (*OrganizationProfile, error) {
	org, err := s.get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	employees, err := s.organizations.CountActiveEmployees(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to count employees: %w", err)
	}

	incidents, err := s.organizations.CountIncidents(ctx, orgID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents: %w", err)
	}

	return &OrganizationProfile{
		Organization: org,
		Stats:        models.OrganizationStats{TotalEmployees: employees, TotalIncidents: incidents},
	}, nil
}

// UpdateSettings changes the name and the settings flags that were sent.
// Flags left out of the request keep their stored value.
func (s *OrganizationService) UpdateSettings(ctx context.Context, orgID uuid.UUID, req models.UpdateSettingsRequest) (*models.Organization, error) {
	org, err := s.get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		org.Name = name
	}
	if req.Settings != nil {
		if req.Settings.SOSCascade != nil {
			org.Settings.SOSCascade = *req.Settings.SOSCascade
		}
		if req.Settings.RequirePhotoUpdate != nil {
			org.Settings.RequirePhotoUpdate = *req.Settings.RequirePhotoUpdate
		}
	}

	if err := s.organizations.UpdateSettings(ctx, orgID, org.Name, org.Settings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	org.UpdatedAt = time.Now()
	return org, nil
}

// ChangePassword replaces the password after checking the current one
func (s *OrganizationService) ChangePassword(ctx context.Context, orgID uuid.UUID, current, next string) error {
	org, err := s.get(ctx, orgID)
	if err != nil {
		return err
	}
	if !checkPassword(org.PasswordHash, current) {
		return ErrIncorrectPassword
	}

	hash, err := hashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.organizations.UpdatePassword(ctx, orgID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the organization with all its employees and
// incidents once the password is confirmed
func (s *OrganizationService) DeleteAccount(ctx context.Context, orgID uuid.UUID, password string) error {
	org, err := s.get(ctx, orgID)
	if err != nil {
		return err
	}
	if !checkPassword(org.PasswordHash, password) {
		return ErrIncorrectPassword
	}

	if err := s.organizations.Delete(ctx, orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}

func (s *OrganizationService) get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, ErrNotFound
	}
	return org, nil
}
