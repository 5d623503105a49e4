package cancellation

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind enums.NotificationKind, recipient string, payload map[string]any) error
}

// Service verifies self-service cancellation tokens and, on success, cancels
// the booking and restores the capacity it consumed.
//
// Two independent clocks bound a request: the stored token expires a fixed
// interval after issuance, and the presented timestamp expires a shorter
// interval after it was minted. Both must hold, and the booking must still be
// pending.
type Service interface {
	CancelOrder(ctx context.Context, code, token string, timestamp int64) error
	CancelReservation(ctx context.Context, code, token string, timestamp int64) error
}

type service struct {
	tx       txRunner
	repo     Repository
	notifier notifier
	logg     *logger.Logger
	cfg      config.CancellationConfig
}

// NewService builds the cancellation service.
func NewService(tx txRunner, repo Repository, notif notifier, logg *logger.Logger, cfg config.CancellationConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cancellation repository required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, notifier: notif, logg: logg, cfg: cfg}, nil
}

func (s *service) CancelOrder(ctx context.Context, code, token string, timestamp int64) error {
	order, err := s.repo.FindOrderByCode(ctx, code)
	if err != nil {
		return notFoundOr(err)
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
	}
	if err := s.verifyToken(order.CancelToken, order.CancelTokenCreatedAt, token, timestamp); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// The pre-check above ran outside the transaction; only winning the
		// conditional update authorizes the capacity restore, so a concurrent
		// cancel or settlement cannot double-restore.
		moved, err := repo.MarkOrderCancelled(ctx, order.ID)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		}
		if err := repo.RestoreStock(ctx, order.BlaneID, order.Quantity); err != nil {
			return err
		}
		return s.enqueueCancelled(ctx, tx, order.Code, order.Customer, order.BlaneID)
	})
}

func (s *service) CancelReservation(ctx context.Context, code, token string, timestamp int64) error {
	reservation, err := s.repo.FindReservationByCode(ctx, code)
	if err != nil {
		return notFoundOr(err)
	}
	if reservation.Status != enums.ReservationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not pending")
	}
	if err := s.verifyToken(reservation.CancelToken, reservation.CancelTokenCreatedAt, token, timestamp); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.MarkReservationCancelled(ctx, reservation.ID)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not pending")
		}
		if err := repo.RestoreReservations(ctx, reservation.BlaneID, reservation.Quantity); err != nil {
			return err
		}
		return s.enqueueCancelled(ctx, tx, reservation.Code, reservation.Customer, reservation.BlaneID)
	})
}

// verifyToken checks both expiry windows before comparing digests, and always
// compares in constant time.
func (s *service) verifyToken(storedToken string, issuedAt time.Time, presented string, timestamp int64) error {
	now := time.Now()
	if now.Sub(issuedAt) > s.cfg.TokenLifetime {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "cancellation token expired")
	}
	if now.Sub(time.Unix(timestamp, 0)) > s.cfg.ReplayWindow {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "cancellation request expired")
	}
	expected := Digest(storedToken, timestamp)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid cancellation token")
	}
	return nil
}

func (s *service) enqueueCancelled(ctx context.Context, tx *gorm.DB, code string, customer *models.Customer, blaneID uuid.UUID) error {
	if customer == nil {
		return nil
	}
	payload := map[string]any{
		"code":     code,
		"blane_id": blaneID.String(),
	}
	return s.notifier.Enqueue(ctx, tx, enums.NotificationBookingCancelled, customer.Email, payload)
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return err
}
