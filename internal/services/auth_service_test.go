package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeOrganizations, *fakeEmployees, *jwt.Service) {
	t.Helper()
	orgs := newFakeOrganizations()
	employees := newFakeEmployees()
	jwtService := jwt.NewService("test-secret", time.Hour)
	return NewAuthService(orgs, employees, jwtService, bcrypt.MinCost), orgs, employees, jwtService
}

func TestAuthService_RegisterOrganization(t *testing.T) {
	svc, orgs, _, jwtService := newAuthFixture(t)
	ctx := context.Background()

	session, err := svc.RegisterOrganization(ctx, models.RegisterOrganizationRequest{
		Name: " Acme Corp ", Email: "OPS@Acme.test", Password: "secret1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", session.Organization.Name)
	assert.Equal(t, "ops@acme.test", session.Organization.Email)
	assert.Equal(t, models.PlanFree, session.Organization.Plan)
	assert.True(t, session.Organization.Settings.SOSCascade)
	assert.False(t, session.Organization.Settings.RequirePhotoUpdate)
	assert.NotEqual(t, "secret1", orgs.byID[session.Organization.ID].PasswordHash)

	claims, err := jwtService.ValidateAccessToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Organization.ID, claims.SubjectID)
	assert.Equal(t, jwt.RoleOrganization, claims.Role)
	assert.Equal(t, int64(3600), session.ExpiresIn)

	_, err = svc.RegisterOrganization(ctx, models.RegisterOrganizationRequest{
		Name: "Other", Email: "ops@acme.test", Password: "secret2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_LoginOrganization(t *testing.T) {
	svc, orgs, _, _ := newAuthFixture(t)
	org := &models.Organization{ID: uuid.New(), Name: "Acme", Email: "ops@acme.test", PasswordHash: mustHash(t, "secret1")}
	orgs.byID[org.ID] = org

	session, err := svc.LoginOrganization(context.Background(), "ops@acme.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, org.ID, session.Organization.ID)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, int64(3600), session.ExpiresIn)

	_, err = svc.LoginOrganization(context.Background(), "ops@acme.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginOrganization(context.Background(), "nobody@acme.test", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginEmployee(t *testing.T) {
	svc, _, employees, jwtService := newAuthFixture(t)
	orgID := uuid.New()
	emp := &models.Employee{
		ID: uuid.New(), OrganizationID: orgID, Email: "jane@acme.test",
		PasswordHash: mustHash(t, "secret1"), Status: models.EmployeeStatusActive,
	}
	employees.byID[emp.ID] = emp

	session, err := svc.LoginEmployee(context.Background(), " Jane@Acme.test", "secret1")
	require.NoError(t, err)

	claims, err := jwtService.ValidateAccessToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, claims.SubjectID)
	assert.Equal(t, orgID, claims.OrganizationID)
	assert.Equal(t, jwt.RoleEmployee, claims.Role)
	assert.Equal(t, int64(3600), session.ExpiresIn)

	emp.Status = models.EmployeeStatusInactive
	_, err = svc.LoginEmployee(context.Background(), "jane@acme.test", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
