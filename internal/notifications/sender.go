package notifications

import (
	"context"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// Sender delivers one outbox row to the customer.
type Sender interface {
	Send(ctx context.Context, notification models.Notification) error
}

// LogSender writes deliveries to the structured log. It stands in until a real
// mail provider is wired; the outbox row is still marked sent so the queue
// drains in every environment.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, notification models.Notification) error {
	if s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kind":      string(notification.Kind),
		"recipient": notification.Recipient,
	})
	s.logg.Info(ctx, "notification dispatched")
	return nil
}
