package main

import (
	"context"
	"os"
	"time"

	"github.com/safeqr/emergency-backend/internal/config"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// run-jobs performs one pass of the scheduled maintenance work: closing
// abandoned incidents and pruning audit logs and login attempts.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var recorder services.AbandonRecorder
	var audit *services.AuditService
	if cfg.Security.EnableAuditLog {
		audit = services.NewAuditService(db)
		recorder = audit
	}

	reconciler := services.NewIncidentReconciler(database.NewIncidentRepository(db), recorder, cfg.Cron.ReconcileAfter, cfg.Notification.AttemptTimeout, logger)
	closed, err := reconciler.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Incident reconciliation failed")
	}
	logger.WithField("closed", closed).Info("Incident reconciliation finished")

	if audit != nil && cfg.Cron.AuditRetention > 0 {
		removed, err := audit.CleanupOldAuditLogs(ctx, cfg.Cron.AuditRetention)
		if err != nil {
			logger.WithError(err).Error("Audit log cleanup failed")
		} else {
			logger.WithField("removed", removed).Info("Audit log cleanup finished")
		}
	}

	throttle := services.NewLoginThrottle(db, services.LoginThrottleConfig{
		EmailWindow: cfg.Security.LoginEmailWindow,
		IPWindow:    cfg.Security.LoginIPWindow,
	})
	removed, err := throttle.CleanupExpired(ctx)
	if err != nil {
		logger.WithError(err).Error("Login attempt cleanup failed")
		return
	}
	logger.WithField("removed", removed).Info("Login attempt cleanup finished")
}
