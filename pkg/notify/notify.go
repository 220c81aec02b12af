// Package notify delivers emergency messages to phone numbers over
// WhatsApp and SMS providers.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Channel identifies a delivery route for a message
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// ErrUnknownChannel is returned by Router when no sender is registered for a channel
var ErrUnknownChannel = errors.New("no sender configured for channel")

// Sender sends a single text message to one international phone number.
// It returns the provider's delivery identifier on success.
type Sender interface {
	Send(ctx context.Context, to, message string) (string, error)

	// Name returns the provider name used in logs and diagnostics
	Name() string
}

// ProviderError is a rejection reported by the provider itself, as opposed
// to a transport failure.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error %s (HTTP %d): %s", e.Provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}
