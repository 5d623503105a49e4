package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/booking"
	"github.com/amineouhani/blanes-backend/internal/commission"
	"github.com/amineouhani/blanes-backend/internal/gateway"
	"github.com/amineouhani/blanes-backend/internal/ledger"
	pkgdb "github.com/amineouhani/blanes-backend/pkg/db"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/metrics"
)

const (
	// BodyCapture and BodyFailure are the literal response bodies the gateway
	// expects; the HTTP status is 200 either way.
	BodyCapture = "ACTION=POSTAUTH"
	BodyFailure = "FAILURE"

	idempotencyScope = "settlement"
	idempotencyTTL   = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type callbackVerifier interface {
	VerifyCallback(form url.Values) *gateway.CallbackResult
}

type notifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind enums.NotificationKind, recipient string, payload map[string]any) error
}

type ledgerWriter interface {
	CreateFromCapture(ctx context.Context, tx *gorm.DB, input ledger.CaptureInput) (*models.VendorPayment, error)
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Result is what the webhook controller writes back to the gateway.
type Result struct {
	Body string
	// Captured is true when this call transitioned the booking to paid.
	// Duplicate deliveries return the capture body without it.
	Captured  bool
	Duplicate bool
}

// Service settles verified gateway callbacks: it flips the booking to paid,
// records the immutable transaction, and books the vendor commission split.
//
// Idempotency is layered: a redis SetNX guard absorbs fast duplicate
// deliveries cheaply, and the unique index on the gateway transaction id is
// the hard guarantee underneath it.
type Service interface {
	HandleCallback(ctx context.Context, form url.Values) Result
}

type service struct {
	tx       txRunner
	repo     Repository
	verifier callbackVerifier
	engine   *commission.Engine
	ledger   ledgerWriter
	notifier notifier
	idem     idempotencyStore
	logg     *logger.Logger
	metrics  *metrics.BookingMetrics
}

// NewService builds the settlement service.
func NewService(
	tx txRunner,
	repo Repository,
	verifier callbackVerifier,
	engine *commission.Engine,
	ledgerSvc ledgerWriter,
	notif notifier,
	idem idempotencyStore,
	logg *logger.Logger,
	bookingMetrics *metrics.BookingMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("callback verifier required")
	}
	if engine == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		verifier: verifier,
		engine:   engine,
		ledger:   ledgerSvc,
		notifier: notif,
		idem:     idem,
		logg:     logg,
		metrics:  bookingMetrics,
	}, nil
}

func (s *service) HandleCallback(ctx context.Context, form url.Values) Result {
	callback := s.verifier.VerifyCallback(form)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"oid":      callback.OID,
		"trans_id": callback.TransID,
	})

	if !callback.Captured() {
		s.logg.Warn(ctx, "gateway callback rejected")
		s.metrics.IncCapture("rejected")
		return Result{Body: BodyFailure}
	}
	if callback.TransID == "" {
		s.logg.Warn(ctx, "gateway callback missing transaction id")
		s.metrics.IncCapture("rejected")
		return Result{Body: BodyFailure}
	}

	duplicate, release, err := s.claimTransaction(ctx, callback.TransID)
	if err != nil {
		s.logg.Error(ctx, "settlement idempotency check failed", err)
		s.metrics.IncCapture("failed")
		return Result{Body: BodyFailure}
	}
	if duplicate {
		s.logg.Info(ctx, "duplicate gateway callback ignored")
		s.metrics.IncCapture("duplicate")
		return Result{Body: BodyCapture, Duplicate: true}
	}

	err = s.settle(ctx, callback)
	if err != nil {
		if errors.Is(err, errAlreadySettled) || pkgdb.IsUniqueViolation(err, "gateway_trans_id") {
			s.metrics.IncCapture("duplicate")
			return Result{Body: BodyCapture, Duplicate: true}
		}
		err = multierr.Append(err, release(ctx))
		s.logg.Error(ctx, "settlement failed", err)
		s.metrics.IncCapture("failed")
		return Result{Body: BodyFailure}
	}

	s.metrics.IncCapture("captured")
	return Result{Body: BodyCapture, Captured: true}
}

var errAlreadySettled = errors.New("already settled")

// claimTransaction takes the redis guard for the transaction id and falls back
// to the transaction table when redis is unavailable. The returned release
// func frees the guard so a retry after a failed settlement is not locked out.
func (s *service) claimTransaction(ctx context.Context, transID string) (bool, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if s.idem != nil {
		key := s.idem.IdempotencyKey(idempotencyScope, transID)
		claimed, err := s.idem.SetNX(ctx, key, "1", idempotencyTTL)
		if err == nil {
			if !claimed {
				return true, noop, nil
			}
			return false, func(ctx context.Context) error { return s.idem.Del(ctx, key) }, nil
		}
		s.logg.Warn(ctx, "redis idempotency guard unavailable, using database check")
	}
	exists, err := s.repo.TransactionExists(ctx, transID)
	if err != nil {
		return false, noop, err
	}
	return exists, noop, nil
}

func (s *service) settle(ctx context.Context, callback *gateway.CallbackResult) error {
	switch {
	case strings.HasPrefix(callback.OID, booking.OrderCodePrefix+"-"):
		return s.settleOrder(ctx, callback)
	case strings.HasPrefix(callback.OID, booking.ReservationCodePrefix+"-"):
		return s.settleReservation(ctx, callback)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unrecognized oid prefix")
	}
}

func (s *service) settleOrder(ctx context.Context, callback *gateway.CallbackResult) error {
	order, err := s.repo.FindOrderByCode(ctx, callback.OID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for callback")
		}
		return err
	}
	if order.Status == enums.OrderStatusPaid {
		return errAlreadySettled
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// The status pre-check ran outside the transaction; the conditional
		// update decides. Losing it to a concurrent settlement is a duplicate,
		// anything else is a state conflict.
		moved, err := repo.MarkOrderPaid(ctx, order.ID)
		if err != nil {
			return err
		}
		if !moved {
			current, err := repo.FindOrderByCode(ctx, callback.OID)
			if err != nil {
				return err
			}
			if current.Status == enums.OrderStatusPaid {
				return errAlreadySettled
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		}
		if err := repo.CreateTransaction(ctx, s.newTransaction(callback, &order.ID, nil, order.TotalPrice)); err != nil {
			return err
		}
		if err := s.bookCommission(ctx, tx, commissionTarget{
			vendorID:      order.VendorID,
			orderID:       &order.ID,
			blane:         order.Blane,
			total:         order.TotalPrice,
			paymentMethod: order.PaymentMethod,
		}); err != nil {
			return err
		}
		return s.enqueueCaptured(ctx, tx, order.Code, order.Customer, order.TotalPrice)
	})
}

func (s *service) settleReservation(ctx context.Context, callback *gateway.CallbackResult) error {
	reservation, err := s.repo.FindReservationByCode(ctx, callback.OID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found for callback")
		}
		return err
	}
	if reservation.Status == enums.ReservationStatusPaid {
		return errAlreadySettled
	}
	if reservation.Status != enums.ReservationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not pending")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.MarkReservationPaid(ctx, reservation.ID)
		if err != nil {
			return err
		}
		if !moved {
			current, err := repo.FindReservationByCode(ctx, callback.OID)
			if err != nil {
				return err
			}
			if current.Status == enums.ReservationStatusPaid {
				return errAlreadySettled
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not pending")
		}
		if err := repo.CreateTransaction(ctx, s.newTransaction(callback, nil, &reservation.ID, reservation.TotalPrice)); err != nil {
			return err
		}
		if err := s.bookCommission(ctx, tx, commissionTarget{
			vendorID:      reservation.VendorID,
			reservationID: &reservation.ID,
			blane:         reservation.Blane,
			total:         reservation.TotalPrice,
			paymentMethod: reservation.PaymentMethod,
		}); err != nil {
			return err
		}
		return s.enqueueCaptured(ctx, tx, reservation.Code, reservation.Customer, reservation.TotalPrice)
	})
}

type commissionTarget struct {
	vendorID      *uuid.UUID
	orderID       *uuid.UUID
	reservationID *uuid.UUID
	blane         *models.Blane
	total         decimal.Decimal
	paymentMethod enums.PaymentMethod
}

// bookCommission writes the vendor settlement line. Cash bookings never earn
// one; a missing vendor is logged and skipped rather than blocking the
// capture.
func (s *service) bookCommission(ctx context.Context, tx *gorm.DB, target commissionTarget) error {
	if target.paymentMethod == enums.PaymentMethodCash {
		return nil
	}
	if target.vendorID == nil {
		s.logg.Warn(ctx, "captured payment has no vendor, skipping settlement line")
		return nil
	}

	var categoryID *uuid.UUID
	if target.blane != nil {
		categoryID = target.blane.CategoryID
	}
	paymentType := enums.PaymentTypeForMethod(target.paymentMethod)
	breakdown, err := s.engine.WithTx(tx).BreakdownFor(ctx, *target.vendorID, categoryID, target.total, paymentType)
	if err != nil {
		return err
	}
	_, err = s.ledger.CreateFromCapture(ctx, tx, ledger.CaptureInput{
		VendorID:      *target.vendorID,
		OrderID:       target.orderID,
		ReservationID: target.reservationID,
		Total:         target.total,
		PaymentType:   paymentType,
		Breakdown:     breakdown,
		PaymentDate:   time.Now(),
	})
	return err
}

func (s *service) enqueueCaptured(ctx context.Context, tx *gorm.DB, code string, customer *models.Customer, total decimal.Decimal) error {
	if customer == nil {
		return nil
	}
	payload := map[string]any{
		"code":  code,
		"total": total.StringFixed(2),
	}
	return s.notifier.Enqueue(ctx, tx, enums.NotificationPaymentCaptured, customer.Email, payload)
}

func (s *service) newTransaction(callback *gateway.CallbackResult, orderID, reservationID *uuid.UUID, fallbackAmount decimal.Decimal) *models.Transaction {
	amount := fallbackAmount
	if parsed, err := decimal.NewFromString(callback.Amount); err == nil {
		amount = parsed
	}
	transaction := &models.Transaction{
		ID:             uuid.New(),
		OrderID:        orderID,
		ReservationID:  reservationID,
		GatewayTransID: callback.TransID,
		ProcReturnCode: callback.ProcReturnCode,
		Response:       callback.Response,
		Amount:         amount,
	}
	if callback.AuthCode != "" {
		transaction.AuthCode = &callback.AuthCode
	}
	if callback.TrxDate != "" {
		transaction.TrxDate = &callback.TrxDate
	}
	return transaction
}
