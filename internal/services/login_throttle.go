package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/safeqr/emergency-backend/internal/database"
)

// LoginThrottleConfig bounds failed logins per email and per client IP
type LoginThrottleConfig struct {
	MaxEmailFailures int
	EmailWindow      time.Duration
	MaxIPFailures    int
	IPWindow         time.Duration
}

// DefaultLoginThrottleConfig returns the default limits
func DefaultLoginThrottleConfig() LoginThrottleConfig {
	return LoginThrottleConfig{
		MaxEmailFailures: 5,                // 5 failures
		EmailWindow:      15 * time.Minute, // per 15 minutes
		MaxIPFailures:    20,               // 20 failures
		IPWindow:         time.Hour,        // per hour
	}
}

// RateLimitError is returned when an identifier has too many recent failures
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// LoginThrottle records failed logins in login_attempts and blocks further
// attempts once a limit is reached
type LoginThrottle struct {
	db     database.DB
	config LoginThrottleConfig
	now    func() time.Time
}

// NewLoginThrottle creates a throttle. Zero config fields fall back to the
// defaults.
func NewLoginThrottle(db database.DB, config LoginThrottleConfig) *LoginThrottle {
	defaults := DefaultLoginThrottleConfig()
	if config.MaxEmailFailures <= 0 {
		config.MaxEmailFailures = defaults.MaxEmailFailures
	}
	if config.EmailWindow <= 0 {
		config.EmailWindow = defaults.EmailWindow
	}
	if config.MaxIPFailures <= 0 {
		config.MaxIPFailures = defaults.MaxIPFailures
	}
	if config.IPWindow <= 0 {
		config.IPWindow = defaults.IPWindow
	}
	return &LoginThrottle{db: db, config: config, now: time.Now}
}

// Check returns a *RateLimitError if the email or IP is currently blocked
func (t *LoginThrottle) Check(ctx context.Context, email, ip string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if email != "" {
		count, last, err := t.failureCount(ctx, email, "email", t.config.EmailWindow)
		if err != nil {
			return fmt.Errorf("failed to check email rate limit: %w", err)
		}
		if count >= t.config.MaxEmailFailures {
			retryAfter := last.Add(t.config.EmailWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many failed login attempts for this account. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "email",
			}
		}
	}

	if ip != "" {
		count, last, err := t.failureCount(ctx, ip, "ip", t.config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}
		if count >= t.config.MaxIPFailures {
			retryAfter := last.Add(t.config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many failed login attempts from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

func (t *LoginThrottle) failureCount(ctx context.Context, identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	query := `
		SELECT COUNT(*) AS count, COALESCE(MAX(created_at), NOW()) AS last_attempt
		FROM login_attempts
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var row struct {
		Count       int       `db:"count"`
		LastAttempt time.Time `db:"last_attempt"`
	}
	if err := t.db.GetContext(ctx, &row, query, identifier, identifierType, t.now().Add(-window)); err != nil {
		return 0, time.Time{}, err
	}
	return row.Count, row.LastAttempt, nil
}

// RecordFailure stores a failed attempt against both identifiers
func (t *LoginThrottle) RecordFailure(ctx context.Context, email, ip string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if email != "" {
		if err := t.record(ctx, email, "email"); err != nil {
			return fmt.Errorf("failed to record email failure: %w", err)
		}
	}
	if ip != "" {
		if err := t.record(ctx, ip, "ip"); err != nil {
			return fmt.Errorf("failed to record IP failure: %w", err)
		}
	}
	return nil
}

func (t *LoginThrottle) record(ctx context.Context, identifier, identifierType string) error {
	query := `
		INSERT INTO login_attempts (identifier, identifier_type, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := t.db.ExecContext(ctx, query, identifier, identifierType, t.now())
	return err
}

// CleanupExpired removes attempts older than the longest window
func (t *LoginThrottle) CleanupExpired(ctx context.Context) (int64, error) {
	maxWindow := t.config.IPWindow
	if t.config.EmailWindow > maxWindow {
		maxWindow = t.config.EmailWindow
	}

	result, err := t.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE created_at < $1`, t.now().Add(-maxWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
