package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/pkg/notify"
	"github.com/safeqr/emergency-backend/pkg/validator"
)

// deliveryState tracks one contact through the primary/fallback policy
type deliveryState int

const (
	stateNotAttempted deliveryState = iota
	statePrimaryFailed
	stateDelivered
	stateFailed
)

func (s deliveryState) String() string {
	switch s {
	case stateNotAttempted:
		return "not_attempted"
	case statePrimaryFailed:
		return "primary_failed"
	case stateDelivered:
		return "delivered"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

func (s deliveryState) terminal() bool {
	return s == stateDelivered || s == stateFailed
}

// advance returns the state after an attempt made in state s
func (s deliveryState) advance(success bool) deliveryState {
	if success {
		return stateDelivered
	}
	if s == stateNotAttempted {
		return statePrimaryFailed
	}
	return stateFailed
}

// contactDelivery sends one message to one contact, trying the primary
// channel and then the fallback once
type contactDelivery struct {
	messenger Messenger
	phones    *validator.PhoneValidator
	primary   notify.Channel
	fallback  notify.Channel
	timeout   time.Duration
	now       func() time.Time
}

func (d *contactDelivery) deliver(ctx context.Context, contact models.EmergencyContact, message string) models.ContactResult {
	result := models.ContactResult{
		ContactName: contact.Name,
		Phone:       contact.Phone,
		Attempts:    []models.DeliveryAttempt{},
	}

	phone, err := d.phones.ValidateInternational(contact.Phone)
	if err != nil {
		result.Error = ErrInvalidPhoneFormat.Error()
		return result
	}

	state := stateNotAttempted
	for !state.terminal() {
		channel := d.primary
		if state == statePrimaryFailed {
			channel = d.fallback
		}

		attempt := d.attempt(ctx, channel, phone, message)
		result.Attempts = append(result.Attempts, attempt)
		state = state.advance(attempt.Success)
	}

	last := result.Attempts[len(result.Attempts)-1]
	result.Success = state == stateDelivered
	result.ChannelUsed = last.Channel
	if result.Success {
		result.DeliveryID = last.DeliveryID
	} else {
		result.Error = last.Error
	}
	return result
}

func (d *contactDelivery) attempt(ctx context.Context, channel notify.Channel, phone, message string) models.DeliveryAttempt {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := d.now()
	deliveryID, err := d.messenger.Send(attemptCtx, channel, phone, message)

	attempt := models.DeliveryAttempt{
		Channel:    string(channel),
		Provider:   d.messenger.Provider(channel),
		StartedAt:  started,
		DurationMs: d.now().Sub(started).Milliseconds(),
	}

	switch {
	case err == nil:
		attempt.Success = true
		attempt.DeliveryID = deliveryID
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		attempt.Error = fmt.Sprintf("%s attempt timed out after %s", channel, d.timeout)
	default:
		attempt.Error = err.Error()
	}
	return attempt
}

// OrderContacts returns the contacts in notification order. With cascade on,
// contacts are sorted by ascending priority, ties keeping list order. With
// cascade off the list order is used as is. Every contact is returned either way.
func OrderContacts(contacts []models.EmergencyContact, cascade bool) []models.EmergencyContact {
	ordered := make([]models.EmergencyContact, len(contacts))
	copy(ordered, contacts)
	if cascade {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority < ordered[j].Priority
		})
	}
	return ordered
}
