package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DevSender logs messages instead of delivering them. Used when
// NOTIFY_MODE is not "production".
type DevSender struct {
	channel Channel
	logger  logrus.FieldLogger
	seq     atomic.Int64
}

// NewDevSender creates a logging sender for the given channel
func NewDevSender(channel Channel, logger logrus.FieldLogger) *DevSender {
	return &DevSender{channel: channel, logger: logger}
}

// Send logs the message and returns a synthetic delivery id
func (s *DevSender) Send(ctx context.Context, to, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := fmt.Sprintf("dev-%s-%d", s.channel, s.seq.Add(1))
	s.logger.WithFields(logrus.Fields{
		"channel":     s.channel,
		"to":          to,
		"delivery_id": id,
		"message":     message,
	}).Info("[DEV] Message not sent")

	return id, nil
}

// Name returns the provider name
func (s *DevSender) Name() string {
	return fmt.Sprintf("dev %s", s.channel)
}
