package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 2 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron           *cron.Cron
	reconciler     *IncidentReconciler
	audit          *AuditService
	throttle       *LoginThrottle
	schedule       string
	auditRetention time.Duration
	logger         logrus.FieldLogger
}

// NewCronService creates a new CronService. audit and throttle may be nil,
// which skips their cleanup jobs.
func NewCronService(reconciler *IncidentReconciler, audit *AuditService, throttle *LoginThrottle, schedule string, auditRetention time.Duration, logger logrus.FieldLogger) *CronService {
	return &CronService{
		cron:           cron.New(cron.WithSeconds()),
		reconciler:     reconciler,
		audit:          audit,
		throttle:       throttle,
		schedule:       schedule,
		auditRetention: auditRetention,
		logger:         logger,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	// Cron format: second minute hour day month weekday
	if _, err := s.cron.AddFunc(s.schedule, s.reconcileIncidentsJob); err != nil {
		return fmt.Errorf("failed to schedule incident reconciliation: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: incident reconciliation")

	if s.audit != nil && s.auditRetention > 0 {
		// "0 30 3 * * *" = 03:30 every day
		if _, err := s.cron.AddFunc("0 30 3 * * *", s.cleanupAuditLogsJob); err != nil {
			return fmt.Errorf("failed to schedule audit cleanup: %w", err)
		}
		s.logger.Info("Scheduled: audit log cleanup (daily at 03:30)")
	}

	if s.throttle != nil {
		// "0 15 * * * *" = quarter past every hour
		if _, err := s.cron.AddFunc("0 15 * * * *", s.cleanupLoginAttemptsJob); err != nil {
			return fmt.Errorf("failed to schedule login attempt cleanup: %w", err)
		}
		s.logger.Info("Scheduled: login attempt cleanup (hourly)")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) reconcileIncidentsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	closed, err := s.reconciler.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Incident reconciliation failed")
		return
	}
	if closed > 0 {
		s.logger.WithFields(logrus.Fields{
			"closed":   closed,
			"duration": time.Since(started).String(),
		}).Warn("[CRON] Finalized abandoned incidents")
	}
}

func (s *CronService) cleanupAuditLogsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.audit.CleanupOldAuditLogs(ctx, s.auditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Audit log cleanup failed")
		return
	}
	s.logger.WithField("removed", removed).Info("[CRON] Cleaned up old audit logs")
}

func (s *CronService) cleanupLoginAttemptsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.throttle.CleanupExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Login attempt cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("[CRON] Cleaned up expired login attempts")
	}
}

// RunReconcileNow runs the reconciliation job immediately
func (s *CronService) RunReconcileNow() {
	s.reconcileIncidentsJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
