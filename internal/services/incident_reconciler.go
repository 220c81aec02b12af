package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	reconcileBatchSize = 100
	abandonedNote      = "dispatch did not complete; no contact confirmed as notified"
)

// AbandonRecorder is notified of every incident the reconciler finalizes
type AbandonRecorder interface {
	LogIncidentAbandoned(ctx context.Context, incident models.Incident, note string) error
}

// IncidentReconciler finalizes incidents whose dispatch never wrote an
// outcome, e.g. because the process stopped mid-dispatch
type IncidentReconciler struct {
	incidents IncidentStore
	recorder  AbandonRecorder
	after     time.Duration
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewIncidentReconciler creates a reconciler for incidents older than after.
// after is raised to DispatchBudget(attemptTimeout) so a dispatch still in
// flight is never closed under it. recorder may be nil.
func NewIncidentReconciler(incidents IncidentStore, recorder AbandonRecorder, after, attemptTimeout time.Duration, logger logrus.FieldLogger) *IncidentReconciler {
	if budget := DispatchBudget(attemptTimeout); after < budget {
		logger.WithFields(logrus.Fields{
			"configured": after.String(),
			"budget":     budget.String(),
		}).Warn("Reconcile threshold raised to the dispatch budget")
		after = budget
	}

	return &IncidentReconciler{
		incidents: incidents,
		recorder:  recorder,
		after:     after,
		logger:    logger,
		now:       time.Now,
	}
}

// Run marks one batch of abandoned incidents failed and returns how many it
// closed. Results are only ever written together with finalized_at, so an
// unfinalized incident has no recorded success to preserve.
func (r *IncidentReconciler) Run(ctx context.Context) (int, error) {
	stale, err := r.incidents.ListUnfinalized(ctx, r.now().Add(-r.after), reconcileBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unfinalized incidents: %w", err)
	}

	closed := 0
	for _, incident := range stale {
		err := r.incidents.MarkFailed(ctx, incident.ID, abandonedNote)
		if errors.Is(err, sql.ErrNoRows) {
			continue // finalized concurrently
		}
		if err != nil {
			r.logger.WithError(err).WithField("incident_id", incident.ID).Error("Failed to finalize incident")
			continue
		}
		closed++

		if r.recorder != nil {
			if err := r.recorder.LogIncidentAbandoned(ctx, incident, abandonedNote); err != nil {
				r.logger.WithError(err).Warn("Failed to audit abandoned incident")
			}
		}
	}

	return closed, nil
}
