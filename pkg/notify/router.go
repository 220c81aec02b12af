package notify

import (
	"context"
	"fmt"
)

// Router dispatches a message to the sender registered for a channel
type Router struct {
	senders map[Channel]Sender
}

// NewRouter creates a router from a channel to sender mapping. Nil senders
// are ignored.
func NewRouter(senders map[Channel]Sender) *Router {
	r := &Router{senders: make(map[Channel]Sender, len(senders))}
	for channel, sender := range senders {
		if sender != nil {
			r.senders[channel] = sender
		}
	}
	return r
}

// Send delivers message to the given phone number over channel
func (r *Router) Send(ctx context.Context, channel Channel, to, message string) (string, error) {
	sender, ok := r.senders[channel]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	return sender.Send(ctx, to, message)
}

// Provider returns the provider name behind a channel, or "" when unset
func (r *Router) Provider(channel Channel) string {
	if sender, ok := r.senders[channel]; ok {
		return sender.Name()
	}
	return ""
}
