package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/commission"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CaptureInput carries everything a verified capture contributes to the
// ledger. Exactly one of OrderID / ReservationID is set.
type CaptureInput struct {
	VendorID      uuid.UUID
	OrderID       *uuid.UUID
	ReservationID *uuid.UUID
	Total         decimal.Decimal
	PaymentType   enums.PaymentType
	Breakdown     commission.Breakdown
	PaymentDate   time.Time
}

// Service owns the vendor payment ledger: settlement lines are created from
// verified captures and then moved through pending, processed and complete by
// admins, with every move logged.
type Service interface {
	// CreateFromCapture writes the settlement line inside the caller's
	// settlement transaction.
	CreateFromCapture(ctx context.Context, tx *gorm.DB, input CaptureInput) (*models.VendorPayment, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, adminID uuid.UUID, transferDate time.Time, note *string) (int64, error)
	// MarkComplete confirms that processed payouts actually landed.
	MarkComplete(ctx context.Context, ids []uuid.UUID, adminID uuid.UUID, note *string) (int64, error)
	// Revert moves processed or complete lines back to pending. The note is
	// mandatory: reverting a payout needs a recorded reason.
	Revert(ctx context.Context, ids []uuid.UUID, adminID uuid.UUID, note string) (int64, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.VendorPayment, string, error)
}

type service struct {
	tx   txRunner
	repo Repository
	logg *logger.Logger
}

// NewService builds the ledger service.
func NewService(tx txRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

func (s *service) CreateFromCapture(ctx context.Context, tx *gorm.DB, input CaptureInput) (*models.VendorPayment, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if (input.OrderID == nil) == (input.ReservationID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order id or reservation id required")
	}

	weekStart, weekEnd := WeekBounds(input.PaymentDate)
	payment := &models.VendorPayment{
		ID:                    uuid.New(),
		VendorID:              input.VendorID,
		OrderID:               input.OrderID,
		ReservationID:         input.ReservationID,
		TotalAmountTTC:        input.Total,
		PaymentType:           input.PaymentType,
		CommissionRateApplied: input.Breakdown.RateApplied,
		CommissionExclVAT:     input.Breakdown.CommissionExclVAT,
		CommissionVAT:         input.Breakdown.CommissionVAT,
		CommissionInclVAT:     input.Breakdown.CommissionInclVAT,
		NetAmountTTC:          input.Breakdown.NetAmount,
		TransferStatus:        enums.TransferStatusPending,
		PaymentDate:           input.PaymentDate,
		WeekStart:             weekStart,
		WeekEnd:               weekEnd,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) MarkProcessed(ctx context.Context, ids []uuid.UUID, adminID uuid.UUID, transferDate time.Time, note *string) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one payment id required")
	}
	if adminID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}

	var affected int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateStatus(ctx, ids,
			[]enums.TransferStatus{enums.TransferStatusPending},
			map[string]any{
				"transfer_status": enums.TransferStatusProcessed,
				"transfer_date":   transferDate,
			})
		if err != nil {
			return err
		}
		if moved == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending payments matched")
		}
		affected = moved
		return repo.AppendLog(ctx, s.newLog(ids, enums.TransferStatusPending, enums.TransferStatusProcessed, adminID, note, int(moved)))
	})
	return affected, err
}

func (s *service) MarkComplete(ctx context.Context, ids []uuid.UUID, adminID uuid.UUID, note *string) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one payment id required")
	}
	if adminID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}

	var affected int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateStatus(ctx, ids,
			[]enums.TransferStatus{enums.TransferStatusProcessed},
			map[string]any{
				"transfer_status": enums.TransferStatusComplete,
			})
		if err != nil {
			return err
		}
		if moved == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no processed payments matched")
		}
		affected = moved
		return repo.AppendLog(ctx, s.newLog(ids, enums.TransferStatusProcessed, enums.TransferStatusComplete, adminID, note, int(moved)))
	})
	return affected, err
}

func (s *service) Revert(ctx context.Context, ids []uuid.UUID, adminID uuid.UUID, note string) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one payment id required")
	}
	if adminID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}
	if note == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "a note is required to revert a payment")
	}

	var affected int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected = 0
		// One conditional update and one log entry per source status, so the
		// audit trail records the status each line actually held.
		for _, from := range []enums.TransferStatus{enums.TransferStatusProcessed, enums.TransferStatusComplete} {
			moved, err := repo.UpdateStatus(ctx, ids,
				[]enums.TransferStatus{from},
				map[string]any{
					"transfer_status": enums.TransferStatusPending,
					"transfer_date":   nil,
				})
			if err != nil {
				return err
			}
			if moved == 0 {
				continue
			}
			if err := repo.AppendLog(ctx, s.newLog(ids, from, enums.TransferStatusPending, adminID, &note, int(moved))); err != nil {
				return err
			}
			affected += moved
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no processed or complete payments matched")
		}
		return nil
	})
	return affected, err
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.VendorPayment, string, error) {
	return s.repo.List(ctx, filter, params)
}

func (s *service) newLog(ids []uuid.UUID, previous, next enums.TransferStatus, adminID uuid.UUID, note *string, affected int) *models.VendorPaymentLog {
	log := &models.VendorPaymentLog{
		ID:             uuid.New(),
		PreviousStatus: previous,
		NewStatus:      next,
		AdminID:        adminID,
		Note:           note,
		AffectedCount:  affected,
	}
	if len(ids) == 1 {
		log.VendorPaymentID = &ids[0]
	}
	return log
}
