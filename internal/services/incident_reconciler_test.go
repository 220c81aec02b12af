package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAbandon struct {
	incidentID uuid.UUID
	note       string
}

type fakeAbandonRecorder struct {
	calls []recordedAbandon
	err   error
}

func (f *fakeAbandonRecorder) LogIncidentAbandoned(ctx context.Context, incident models.Incident, note string) error {
	f.calls = append(f.calls, recordedAbandon{incidentID: incident.ID, note: note})
	return f.err
}

func TestIncidentReconciler_Run(t *testing.T) {
	logger, hook := newTestLogger()
	incidents := newFakeIncidents()

	first := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-time.Hour)}
	second := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-30 * time.Minute)}
	fresh := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-time.Minute)}
	alreadyDone := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-time.Hour)}
	incidents.outcomes[alreadyDone.ID] = models.SOSStatusSent
	incidents.unfinalized = []models.Incident{first, second, fresh, alreadyDone}

	recorder := &fakeAbandonRecorder{err: errors.New("audit unavailable")}
	reconciler := NewIncidentReconciler(incidents, recorder, 15*time.Minute, DefaultAttemptTimeout, logger)
	reconciler.now = func() time.Time { return fixedNow }

	closed, err := reconciler.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	assert.Equal(t, models.SOSStatusFailed, incidents.outcomes[first.ID])
	assert.Equal(t, abandonedNote, incidents.failedNotes[first.ID])
	assert.Equal(t, abandonedNote, incidents.failedNotes[second.ID])
	assert.NotContains(t, incidents.failedNotes, fresh.ID)
	assert.NotContains(t, incidents.outcomes, fresh.ID)
	assert.Equal(t, models.SOSStatusSent, incidents.outcomes[alreadyDone.ID])
	assert.NotContains(t, incidents.failedNotes, alreadyDone.ID)
	assert.Zero(t, incidents.updateCalls)

	require.Len(t, recorder.calls, 2)
	assert.Equal(t, first.ID, recorder.calls[0].incidentID)
	assert.Equal(t, second.ID, recorder.calls[1].incidentID)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Failed to audit abandoned incident" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestIncidentReconciler_NoRecorder(t *testing.T) {
	logger, _ := newTestLogger()
	incidents := newFakeIncidents()
	stale := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-time.Hour)}
	incidents.unfinalized = []models.Incident{stale}

	reconciler := NewIncidentReconciler(incidents, nil, 15*time.Minute, DefaultAttemptTimeout, logger)
	reconciler.now = func() time.Time { return fixedNow }

	closed, err := reconciler.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Contains(t, incidents.failedNotes, stale.ID)
}

func TestIncidentReconciler_WaitsOutDispatchBudget(t *testing.T) {
	logger, hook := newTestLogger()
	incidents := newFakeIncidents()

	attemptTimeout := 30 * time.Second
	budget := DispatchBudget(attemptTimeout)
	require.Equal(t, 11*time.Minute, budget)

	// A dispatch to every contact with both channels timing out is still
	// running two minutes in.
	inFlight := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-2 * time.Minute)}
	abandoned := models.Incident{ID: uuid.New(), CreatedAt: fixedNow.Add(-budget - time.Second)}
	incidents.unfinalized = []models.Incident{inFlight, abandoned}

	reconciler := NewIncidentReconciler(incidents, nil, time.Minute, attemptTimeout, logger)
	reconciler.now = func() time.Time { return fixedNow }

	closed, err := reconciler.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.NotContains(t, incidents.failedNotes, inFlight.ID)
	assert.Contains(t, incidents.failedNotes, abandoned.ID)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Reconcile threshold raised to the dispatch budget", hook.Entries[0].Message)

	// The dispatcher finishes after the reconciler ran and its outcome wins
	require.NoError(t, incidents.UpdateOutcome(context.Background(), inFlight.ID, models.SOSStatusSent, models.ContactResults{}))
	assert.Equal(t, models.SOSStatusSent, incidents.outcomes[inFlight.ID])
}

func TestDispatchBudget(t *testing.T) {
	assert.Equal(t, MaxEmergencyContacts*2*DefaultAttemptTimeout+time.Minute, DispatchBudget(0))
	assert.Equal(t, 21*time.Minute, DispatchBudget(time.Minute))
}
