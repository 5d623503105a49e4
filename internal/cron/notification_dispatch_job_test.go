package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/notifications"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

type recordingSender struct {
	sent   []models.Notification
	failOn string
}

func (s *recordingSender) Send(_ context.Context, n models.Notification) error {
	if s.failOn != "" && n.Recipient == s.failOn {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, n)
	return nil
}

func newDispatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:dispatch_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, recipient string, sentAt *time.Time) *models.Notification {
	t.Helper()
	row := &models.Notification{
		ID:        uuid.New(),
		Kind:      enums.NotificationBookingExpired,
		Recipient: recipient,
		Payload:   json.RawMessage(`{"code":"ORDER-AA000001"}`),
		SentAt:    sentAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestNotificationDispatchMarksSentRows(t *testing.T) {
	db := newDispatchTestDB(t)
	repo := notifications.NewRepository(db)
	sender := &recordingSender{}

	seedNotification(t, db, "a@example.com", nil)
	seedNotification(t, db, "b@example.com", nil)
	already := time.Now().Add(-time.Hour)
	seedNotification(t, db, "done@example.com", &already)

	job, err := NewNotificationDispatchJob(repo, sender, logger.New(logger.Options{ServiceName: "cron-test"}), 10)
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, sender.sent, 2)

	var remaining int64
	require.NoError(t, db.Model(&models.Notification{}).Where("sent_at IS NULL").Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestNotificationDispatchKeepsFailedRowsPending(t *testing.T) {
	db := newDispatchTestDB(t)
	repo := notifications.NewRepository(db)
	sender := &recordingSender{failOn: "broken@example.com"}

	seedNotification(t, db, "broken@example.com", nil)
	seedNotification(t, db, "ok@example.com", nil)

	job, err := NewNotificationDispatchJob(repo, sender, logger.New(logger.Options{ServiceName: "cron-test"}), 10)
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ok@example.com", sender.sent[0].Recipient)

	var pending []models.Notification
	require.NoError(t, db.Where("sent_at IS NULL").Find(&pending).Error)
	require.Len(t, pending, 1)
	assert.Equal(t, "broken@example.com", pending[0].Recipient)
}

func TestNotificationDispatchHonorsBatchLimit(t *testing.T) {
	db := newDispatchTestDB(t)
	repo := notifications.NewRepository(db)
	sender := &recordingSender{}

	for i := 0; i < 5; i++ {
		seedNotification(t, db, uuid.NewString()+"@example.com", nil)
	}

	job, err := NewNotificationDispatchJob(repo, sender, logger.New(logger.Options{ServiceName: "cron-test"}), 3)
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, sender.sent, 3)
}

func TestNewNotificationDispatchJobValidatesDeps(t *testing.T) {
	db := newDispatchTestDB(t)
	repo := notifications.NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "cron-test"})

	_, err := NewNotificationDispatchJob(nil, &recordingSender{}, logg, 10)
	assert.Error(t, err)

	_, err = NewNotificationDispatchJob(repo, nil, logg, 10)
	assert.Error(t, err)

	_, err = NewNotificationDispatchJob(repo, &recordingSender{}, nil, 10)
	assert.Error(t, err)

	job, err := NewNotificationDispatchJob(repo, &recordingSender{}, logg, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultDispatchBatch, job.batch)
}
