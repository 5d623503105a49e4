package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amineouhani/blanes-backend/internal/notifications"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

const defaultDispatchBatch = 100

type notificationStore interface {
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// NotificationDispatchJob drains the outbox. A row that fails to send stays
// pending and is retried next cycle.
type NotificationDispatchJob struct {
	store  notificationStore
	sender notifications.Sender
	logg   *logger.Logger
	batch  int
}

// NewNotificationDispatchJob builds the outbox dispatch job.
func NewNotificationDispatchJob(store notificationStore, sender notifications.Sender, logg *logger.Logger, batch int) (*NotificationDispatchJob, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if batch <= 0 {
		batch = defaultDispatchBatch
	}
	return &NotificationDispatchJob{store: store, sender: sender, logg: logg, batch: batch}, nil
}

// Name implements Job.
func (j *NotificationDispatchJob) Name() string {
	return "notification-dispatch"
}

// Run implements Job.
func (j *NotificationDispatchJob) Run(ctx context.Context) error {
	pending, err := j.store.ListPending(ctx, j.batch)
	if err != nil {
		return err
	}

	sent := 0
	for _, notification := range pending {
		if err := j.sender.Send(ctx, notification); err != nil {
			errCtx := j.logg.WithField(ctx, "notification_id", notification.ID.String())
			j.logg.Error(errCtx, "notification delivery failed", err)
			continue
		}
		if err := j.store.MarkSent(ctx, notification.ID, time.Now()); err != nil {
			return err
		}
		sent++
	}

	if sent > 0 {
		j.logg.Info(j.logg.WithField(ctx, "sent", sent), "outbox drained")
	}
	return nil
}
