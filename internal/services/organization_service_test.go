package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newOrganizationFixture(t *testing.T) (*OrganizationService, *fakeOrganizations, *models.Organization) {
	t.Helper()
	org := &models.Organization{
		ID:           uuid.New(),
		Name:         "Acme Corp",
		Email:        "ops@acme.test",
		PasswordHash: mustHash(t, "secret1"),
		Settings:     models.DefaultOrganizationSettings(),
	}
	orgs := newFakeOrganizations(org)
	return NewOrganizationService(orgs, bcrypt.MinCost), orgs, org
}

func TestOrganizationService_Profile(t *testing.T) {
	svc, _, org := newOrganizationFixture(t)

	profile, err := svc.Profile(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", profile.Organization.Name)
	assert.Equal(t, 4, profile.Stats.TotalEmployees)
	assert.Equal(t, 2, profile.Stats.TotalIncidents)

	_, err = svc.Profile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrganizationService_UpdateSettings(t *testing.T) {
	svc, orgs, org := newOrganizationFixture(t)
	off := false

	updated, err := svc.UpdateSettings(context.Background(), org.ID, models.UpdateSettingsRequest{
		Settings: &models.SettingsUpdate{SOSCascade: &off},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)
	assert.False(t, updated.Settings.SOSCascade)
	assert.False(t, updated.Settings.RequirePhotoUpdate)

	on := true
	updated, err = svc.UpdateSettings(context.Background(), org.ID, models.UpdateSettingsRequest{
		Name:     "  Acme Ltd ",
		Settings: &models.SettingsUpdate{RequirePhotoUpdate: &on},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", updated.Name)
	assert.False(t, updated.Settings.SOSCascade, "flags left out keep their value")
	assert.True(t, updated.Settings.RequirePhotoUpdate)
	assert.Equal(t, "Acme Ltd", orgs.byID[org.ID].Name)
}

func TestOrganizationService_ChangePassword(t *testing.T) {
	svc, orgs, org := newOrganizationFixture(t)

	err := svc.ChangePassword(context.Background(), org.ID, "wrong", "secret2")
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	require.NoError(t, svc.ChangePassword(context.Background(), org.ID, "secret1", "secret2"))
	assert.True(t, checkPassword(orgs.byID[org.ID].PasswordHash, "secret2"))
	assert.False(t, checkPassword(orgs.byID[org.ID].PasswordHash, "secret1"))
}

func TestOrganizationService_DeleteAccount(t *testing.T) {
	svc, orgs, org := newOrganizationFixture(t)

	err := svc.DeleteAccount(context.Background(), org.ID, "wrong")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	assert.Empty(t, orgs.deleted)

	require.NoError(t, svc.DeleteAccount(context.Background(), org.ID, "secret1"))
	assert.Equal(t, []uuid.UUID{org.ID}, orgs.deleted)

	_, err = svc.Profile(context.Background(), org.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
