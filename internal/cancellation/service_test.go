package cancellation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/notifications"
	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cancellation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Blane{},
		&models.Customer{},
		&models.Order{},
		&models.Reservation{},
		&models.Notification{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	notifSvc, err := notifications.NewService(notifications.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(
		gormTx{db: db},
		NewRepository(db),
		notifSvc,
		logger.New(logger.Options{ServiceName: "cancellation-test"}),
		config.CancellationConfig{TokenLifetime: time.Hour, ReplayWindow: 15 * time.Minute},
	)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) (*models.Order, *models.Blane) {
	t.Helper()
	blane := &models.Blane{
		ID:     uuid.New(),
		Name:   "Dinner for two",
		Type:   enums.BlaneTypeOrder,
		Price:  decimal.NewFromInt(80),
		Stock:  3,
		Active: true,
	}
	require.NoError(t, db.Create(blane).Error)

	customer := &models.Customer{
		ID:    uuid.New(),
		Name:  "Sara B",
		Email: "sara@example.com",
		Phone: "+212600000000",
	}
	require.NoError(t, db.Create(customer).Error)

	order := &models.Order{
		ID:                   uuid.New(),
		Code:                 "ORDER-ZZ123456",
		BlaneID:              blane.ID,
		CustomerID:           customer.ID,
		Quantity:             2,
		PaymentMethod:        enums.PaymentMethodCash,
		Status:               enums.OrderStatusPending,
		TotalPrice:           decimal.NewFromInt(160),
		CancelToken:          "secret-token",
		CancelTokenCreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order, blane
}

func TestCancelOrder_Success(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	order, blane := seedOrder(t, db, nil)

	ts := time.Now().Unix()
	err := svc.CancelOrder(context.Background(), order.Code, Digest(order.CancelToken, ts), ts)
	require.NoError(t, err)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)

	var reloadedBlane models.Blane
	require.NoError(t, db.First(&reloadedBlane, "id = ?", blane.ID).Error)
	assert.Equal(t, 5, reloadedBlane.Stock, "quantity restored")

	var notifCount int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifCount).Error)
	assert.EqualValues(t, 1, notifCount)
}

func TestCancelOrder_WrongToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	order, _ := seedOrder(t, db, nil)

	ts := time.Now().Unix()
	err := svc.CancelOrder(context.Background(), order.Code, Digest("other-secret", ts), ts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestCancelOrder_TokenLifetimeExpired(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	order, _ := seedOrder(t, db, func(o *models.Order) {
		o.CancelTokenCreatedAt = time.Now().Add(-2 * time.Hour)
	})

	ts := time.Now().Unix()
	err := svc.CancelOrder(context.Background(), order.Code, Digest(order.CancelToken, ts), ts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestCancelOrder_StaleTimestamp(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	order, _ := seedOrder(t, db, nil)

	ts := time.Now().Add(-30 * time.Minute).Unix()
	err := svc.CancelOrder(context.Background(), order.Code, Digest(order.CancelToken, ts), ts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestCancelOrder_NotPending(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	order, _ := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
	})

	ts := time.Now().Unix()
	err := svc.CancelOrder(context.Background(), order.Code, Digest(order.CancelToken, ts), ts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCancelOrder_RepeatCancelRestoresStockOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	order, blane := seedOrder(t, db, nil)

	ts := time.Now().Unix()
	require.NoError(t, svc.CancelOrder(context.Background(), order.Code, Digest(order.CancelToken, ts), ts))

	err := svc.CancelOrder(context.Background(), order.Code, Digest(order.CancelToken, ts), ts)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	var reloadedBlane models.Blane
	require.NoError(t, db.First(&reloadedBlane, "id = ?", blane.ID).Error)
	assert.Equal(t, 5, reloadedBlane.Stock, "quantity restored exactly once")
}

func TestMarkOrderCancelledWinsOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	order, _ := seedOrder(t, db, nil)

	// Two racing cancels both pass the pending pre-check; only the first
	// conditional update may report a win.
	moved, err := repo.MarkOrderCancelled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.MarkOrderCancelled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestCancelOrder_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	err := svc.CancelOrder(context.Background(), "ORDER-XX000000", "digest", time.Now().Unix())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCancelReservation_Success(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	blane := &models.Blane{
		ID:                    uuid.New(),
		Name:                  "Hammam session",
		Type:                  enums.BlaneTypeReservation,
		Price:                 decimal.NewFromInt(50),
		ReservationsRemaining: 4,
		Active:                true,
	}
	require.NoError(t, db.Create(blane).Error)

	customer := &models.Customer{
		ID:    uuid.New(),
		Name:  "Omar K",
		Email: "omar@example.com",
		Phone: "+212611111111",
	}
	require.NoError(t, db.Create(customer).Error)

	reservation := &models.Reservation{
		ID:                   uuid.New(),
		Code:                 "RES-ZZ654321",
		BlaneID:              blane.ID,
		CustomerID:           customer.ID,
		Date:                 time.Now().AddDate(0, 0, 2),
		Quantity:             3,
		PaymentMethod:        enums.PaymentMethodCash,
		Status:               enums.ReservationStatusPending,
		TotalPrice:           decimal.NewFromInt(150),
		CancelToken:          "res-secret",
		CancelTokenCreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(reservation).Error)

	ts := time.Now().Unix()
	err := svc.CancelReservation(context.Background(), reservation.Code, Digest(reservation.CancelToken, ts), ts)
	require.NoError(t, err)

	var reloaded models.Reservation
	require.NoError(t, db.First(&reloaded, "id = ?", reservation.ID).Error)
	assert.Equal(t, enums.ReservationStatusCancelled, reloaded.Status)

	var reloadedBlane models.Blane
	require.NoError(t, db.First(&reloadedBlane, "id = ?", blane.ID).Error)
	assert.Equal(t, 7, reloadedBlane.ReservationsRemaining)
}

func TestDigestIsDeterministic(t *testing.T) {
	a := Digest("token", 1700000000)
	b := Digest("token", 1700000000)
	c := Digest("token", 1700000001)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
