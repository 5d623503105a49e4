package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind enums.NotificationKind, recipient string, payload map[string]any) error
}

// BookingExpiryJob expires pending gateway-paid bookings whose payment never
// arrived and hands their capacity back. Cash bookings are confirmed offline
// and never expire here.
type BookingExpiryJob struct {
	tx       txRunner
	db       *gorm.DB
	notifier notifier
	logg     *logger.Logger
	ttl      time.Duration
}

// NewBookingExpiryJob builds the expiry job.
func NewBookingExpiryJob(tx txRunner, db *gorm.DB, notif notifier, logg *logger.Logger, ttl time.Duration) (*BookingExpiryJob, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	return &BookingExpiryJob{tx: tx, db: db, notifier: notif, logg: logg, ttl: ttl}, nil
}

// Name implements Job.
func (j *BookingExpiryJob) Name() string {
	return "booking-expiry"
}

// Run implements Job.
func (j *BookingExpiryJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.ttl)

	expiredOrders, err := j.expireOrders(ctx, cutoff)
	if err != nil {
		return err
	}
	expiredReservations, err := j.expireReservations(ctx, cutoff)
	if err != nil {
		return err
	}

	if expiredOrders+expiredReservations > 0 {
		fields := map[string]any{
			"orders":       expiredOrders,
			"reservations": expiredReservations,
		}
		j.logg.Info(j.logg.WithFields(ctx, fields), "expired stale pending bookings")
	}
	return nil
}

func (j *BookingExpiryJob) expireOrders(ctx context.Context, cutoff time.Time) (int, error) {
	var orders []models.Order
	err := j.db.WithContext(ctx).
		Preload("Customer").
		Where("status = ? AND payment_method <> ? AND created_at < ?",
			enums.OrderStatusPending, enums.PaymentMethodCash, cutoff).
		Find(&orders).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range orders {
		order := order
		err := j.tx.WithTx(ctx, func(tx *gorm.DB) error {
			res := tx.WithContext(ctx).
				Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, enums.OrderStatusPending).
				Update("status", enums.OrderStatusExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			err := tx.WithContext(ctx).
				Model(&models.Blane{}).
				Where("id = ?", order.BlaneID).
				UpdateColumn("stock", gorm.Expr("stock + ?", order.Quantity)).Error
			if err != nil {
				return err
			}
			expired++
			return j.enqueueExpired(ctx, tx, order.Code, order.Customer)
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (j *BookingExpiryJob) expireReservations(ctx context.Context, cutoff time.Time) (int, error) {
	var reservations []models.Reservation
	err := j.db.WithContext(ctx).
		Preload("Customer").
		Where("status = ? AND payment_method <> ? AND created_at < ?",
			enums.ReservationStatusPending, enums.PaymentMethodCash, cutoff).
		Find(&reservations).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, reservation := range reservations {
		reservation := reservation
		err := j.tx.WithTx(ctx, func(tx *gorm.DB) error {
			res := tx.WithContext(ctx).
				Model(&models.Reservation{}).
				Where("id = ? AND status = ?", reservation.ID, enums.ReservationStatusPending).
				Update("status", enums.ReservationStatusExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			err := tx.WithContext(ctx).
				Model(&models.Blane{}).
				Where("id = ?", reservation.BlaneID).
				UpdateColumn("reservations_remaining", gorm.Expr("reservations_remaining + ?", reservation.Quantity)).Error
			if err != nil {
				return err
			}
			expired++
			return j.enqueueExpired(ctx, tx, reservation.Code, reservation.Customer)
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (j *BookingExpiryJob) enqueueExpired(ctx context.Context, tx *gorm.DB, code string, customer *models.Customer) error {
	if customer == nil {
		return nil
	}
	return j.notifier.Enqueue(ctx, tx, enums.NotificationBookingExpired, customer.Email, map[string]any{"code": code})
}
