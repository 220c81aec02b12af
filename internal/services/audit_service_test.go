package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditFixture(t *testing.T) (*AuditService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuditService(database.NewPostgresDB(db)), mock
}

func TestAuditService_LogSOSTrigger(t *testing.T) {
	svc, mock := newAuditFixture(t)
	lat, lng := 6.9271, 79.8612
	incident := &models.Incident{
		ID:             uuid.New(),
		EmployeeID:     uuid.New(),
		OrganizationID: uuid.New(),
		SOSStatus:      models.SOSStatusSent,
		Location:       models.Location{Latitude: &lat, Longitude: &lng},
		ScannedBy:      models.Reporter{Name: "Passer-by"},
	}

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(incident.OrganizationID.String(), nil, ActionSOSTriggered, "incident", incident.ID.String(),
			"203.0.113.7", "Mozilla/5.0 (iPhone)", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.LogSOSTrigger(context.Background(), incident, 1, 2, "203.0.113.7", "Mozilla/5.0 (iPhone)")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogLogin(t *testing.T) {
	svc, mock := newAuditFixture(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(nil, nil, ActionLoginFailed, "organization", nil, "10.0.0.1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.LogLogin(context.Background(), nil, nil, "organization", "ops@acme.test", false, "10.0.0.1", "")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnError(fmt.Errorf("connection refused"))

	id := uuid.New()
	err = svc.LogLogin(context.Background(), &id, &id, "organization", "ops@acme.test", true, "10.0.0.1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to log audit event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_CleanupOldAuditLogs(t *testing.T) {
	svc, mock := newAuditFixture(t)

	mock.ExpectExec(`DELETE FROM audit_logs WHERE created_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	removed, err := svc.CleanupOldAuditLogs(context.Background(), 180*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
