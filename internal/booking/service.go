package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/cancellation"
	"github.com/amineouhani/blanes-backend/internal/capacity"
	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ownerResolver interface {
	ResolveOwner(ctx context.Context, blane *models.Blane) (*uuid.UUID, error)
}

type notifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind enums.NotificationKind, recipient string, payload map[string]any) error
}

type paymentInitiator interface {
	PaymentForm(oid string, amount decimal.Decimal, customer *models.Customer) (map[string]string, error)
}

// Service admits bookings against a blane's capacity ceilings.
//
// Admission is two-phase: a fast pre-check outside any transaction rejects the
// obviously hopeless requests cheaply, then the same checks run again under a
// row lock on the blane so concurrent admissions serialize. Only the locked
// re-check is authoritative.
type Service interface {
	CreateOrder(ctx context.Context, input OrderInput) (*OrderResult, error)
	CreateReservation(ctx context.Context, input ReservationInput) (*ReservationResult, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	capacity capacity.Repository
	vendors  ownerResolver
	notifier notifier
	payment  paymentInitiator
	logg     *logger.Logger
	metrics  *metrics.BookingMetrics
	cfg      config.BookingConfig
	loc      *time.Location
	rate     decimal.Decimal
}

// NewService builds the booking admission service.
func NewService(
	tx txRunner,
	repo Repository,
	capRepo capacity.Repository,
	vendors ownerResolver,
	notif notifier,
	payment paymentInitiator,
	logg *logger.Logger,
	bookingMetrics *metrics.BookingMetrics,
	cfg config.BookingConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if capRepo == nil {
		return nil, fmt.Errorf("capacity repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor resolver required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if payment == nil {
		return nil, fmt.Errorf("payment initiator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading booking timezone: %w", err)
	}
	return &service{
		tx:       tx,
		repo:     repo,
		capacity: capRepo,
		vendors:  vendors,
		notifier: notif,
		payment:  payment,
		logg:     logg,
		metrics:  bookingMetrics,
		cfg:      cfg,
		loc:      loc,
		rate:     decimal.NewFromFloat(cfg.PriceRate),
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input OrderInput) (*OrderResult, error) {
	if err := validateCommon(input.BlaneID, input.Customer, input.Quantity, input.PaymentMethod); err != nil {
		return nil, err
	}

	blane, err := s.loadBlane(ctx, input.BlaneID)
	if err != nil {
		return nil, err
	}
	if blane.Type != enums.BlaneTypeOrder {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "blane does not accept orders")
	}
	if !blane.IsDigital {
		if input.DeliveryAddress == nil || *input.DeliveryAddress == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required for physical orders")
		}
		if input.City == nil || *input.City == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery city required for physical orders")
		}
	}

	// Fast pre-check before taking the row lock.
	now := time.Now().In(s.loc)
	violations, err := s.orderViolations(ctx, s.capacity, blane, input.Quantity, now)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 && !input.ConfirmExceed {
		s.metrics.IncRejected("order", violations[0].Ceiling)
		return nil, capacityExceeded(violations)
	}

	var result *OrderResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		capRepo := s.capacity.WithTx(tx)

		locked, err := capRepo.LockBlane(ctx, input.BlaneID)
		if err != nil {
			return err
		}
		violations, err := s.orderViolations(ctx, capRepo, locked, input.Quantity, now)
		if err != nil {
			return err
		}
		if len(violations) > 0 && !input.ConfirmExceed {
			s.metrics.IncRejected("order", violations[0].Ceiling)
			return capacityExceeded(violations)
		}
		if len(violations) > 0 {
			fields := map[string]any{"blane_id": locked.ID.String(), "violations": violations}
			s.logg.Warn(s.logg.WithFields(ctx, fields), "admitting order past capacity on override")
		}

		customer, err := repo.GetOrCreateCustomer(ctx, input.Customer)
		if err != nil {
			return err
		}
		code, err := generateCode(ctx, OrderCodePrefix, s.cfg.CodeMaxAttempts, repo.OrderCodeExists)
		if err != nil {
			return err
		}
		vendorID, err := s.vendors.ResolveOwner(ctx, locked)
		if err != nil {
			return err
		}
		token, err := newCancelToken()
		if err != nil {
			return err
		}

		total := quoteOrder(locked, input.Quantity, input.City, s.rate)
		partial := partialAmount(locked, input.PaymentMethod, total)

		order := &models.Order{
			ID:                   uuid.New(),
			Code:                 code,
			BlaneID:              locked.ID,
			CustomerID:           customer.ID,
			VendorID:             vendorID,
			Quantity:             input.Quantity,
			PaymentMethod:        input.PaymentMethod,
			Status:               enums.OrderStatusPending,
			TotalPrice:           total,
			PartialPrice:         partial,
			DeliveryAddress:      input.DeliveryAddress,
			City:                 input.City,
			Comments:             input.Comments,
			Source:               input.Source,
			CancelToken:          token,
			CancelTokenCreatedAt: now,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repo.AdjustStock(ctx, locked.ID, -input.Quantity); err != nil {
			return err
		}

		payload := map[string]any{
			"code":     order.Code,
			"blane":    locked.Name,
			"quantity": order.Quantity,
			"total":    order.TotalPrice.StringFixed(2),
		}
		if err := s.notifier.Enqueue(ctx, tx, enums.NotificationBookingCreated, customer.Email, payload); err != nil {
			return err
		}

		result = &OrderResult{Order: order}
		result.Order.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdmitted("order")
	result.Cancellation = s.cancellationInfo(result.Order.CancelToken, now)
	if input.PaymentMethod.RequiresGateway() {
		form, err := s.payment.PaymentForm(result.Order.Code, amountDue(result.Order.TotalPrice, result.Order.PartialPrice), result.Order.Customer)
		if err != nil {
			return nil, err
		}
		result.PaymentForm = form
	}
	return result, nil
}

func (s *service) CreateReservation(ctx context.Context, input ReservationInput) (*ReservationResult, error) {
	if err := validateCommon(input.BlaneID, input.Customer, input.Quantity, input.PaymentMethod); err != nil {
		return nil, err
	}
	if input.NumberPersons <= 0 {
		input.NumberPersons = 1
	}

	blane, err := s.loadBlane(ctx, input.BlaneID)
	if err != nil {
		return nil, err
	}
	if blane.Type != enums.BlaneTypeReservation {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "blane does not accept reservations")
	}

	now := time.Now().In(s.loc)
	date := dateOnly(input.Date.In(s.loc))
	if date.Before(dateOnly(now)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation date is in the past")
	}
	switch blane.SlotKind {
	case enums.SlotKindTime:
		if input.TimeSlot == nil || *input.TimeSlot == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "time slot required")
		}
	case enums.SlotKindDateRange:
		if input.EndDate == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date required")
		}
		if dateOnly(input.EndDate.In(s.loc)).Before(date) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date precedes start date")
		}
	}

	violations, err := s.reservationViolations(ctx, s.capacity, blane, input, date)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 && !input.ConfirmExceed {
		s.metrics.IncRejected("reservation", violations[0].Ceiling)
		return nil, capacityExceeded(violations)
	}

	var result *ReservationResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		capRepo := s.capacity.WithTx(tx)

		locked, err := capRepo.LockBlane(ctx, input.BlaneID)
		if err != nil {
			return err
		}
		violations, err := s.reservationViolations(ctx, capRepo, locked, input, date)
		if err != nil {
			return err
		}
		if len(violations) > 0 && !input.ConfirmExceed {
			s.metrics.IncRejected("reservation", violations[0].Ceiling)
			return capacityExceeded(violations)
		}
		if len(violations) > 0 {
			fields := map[string]any{"blane_id": locked.ID.String(), "violations": violations}
			s.logg.Warn(s.logg.WithFields(ctx, fields), "admitting reservation past capacity on override")
		}

		customer, err := repo.GetOrCreateCustomer(ctx, input.Customer)
		if err != nil {
			return err
		}
		code, err := generateCode(ctx, ReservationCodePrefix, s.cfg.CodeMaxAttempts, repo.ReservationCodeExists)
		if err != nil {
			return err
		}
		vendorID, err := s.vendors.ResolveOwner(ctx, locked)
		if err != nil {
			return err
		}
		token, err := newCancelToken()
		if err != nil {
			return err
		}

		total := quoteReservation(locked, input.Quantity, s.rate)
		partial := partialAmount(locked, input.PaymentMethod, total)

		var endDate *time.Time
		if input.EndDate != nil {
			end := dateOnly(input.EndDate.In(s.loc))
			endDate = &end
		}
		reservation := &models.Reservation{
			ID:                   uuid.New(),
			Code:                 code,
			BlaneID:              locked.ID,
			CustomerID:           customer.ID,
			VendorID:             vendorID,
			Date:                 date,
			Time:                 input.TimeSlot,
			EndDate:              endDate,
			NumberPersons:        input.NumberPersons,
			Quantity:             input.Quantity,
			PaymentMethod:        input.PaymentMethod,
			Status:               enums.ReservationStatusPending,
			TotalPrice:           total,
			PartialPrice:         partial,
			Comments:             input.Comments,
			Source:               input.Source,
			CancelToken:          token,
			CancelTokenCreatedAt: now,
		}
		if err := repo.CreateReservation(ctx, reservation); err != nil {
			return err
		}
		if err := repo.AdjustReservationsRemaining(ctx, locked.ID, -input.Quantity); err != nil {
			return err
		}

		payload := map[string]any{
			"code":  reservation.Code,
			"blane": locked.Name,
			"date":  reservation.Date.Format("2006-01-02"),
			"total": reservation.TotalPrice.StringFixed(2),
		}
		if err := s.notifier.Enqueue(ctx, tx, enums.NotificationBookingCreated, customer.Email, payload); err != nil {
			return err
		}

		result = &ReservationResult{Reservation: reservation}
		result.Reservation.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdmitted("reservation")
	result.Cancellation = s.cancellationInfo(result.Reservation.CancelToken, now)
	if input.PaymentMethod.RequiresGateway() {
		form, err := s.payment.PaymentForm(result.Reservation.Code, amountDue(result.Reservation.TotalPrice, result.Reservation.PartialPrice), result.Reservation.Customer)
		if err != nil {
			return nil, err
		}
		result.PaymentForm = form
	}
	return result, nil
}

func (s *service) loadBlane(ctx context.Context, id uuid.UUID) (*models.Blane, error) {
	blane, err := s.repo.FindBlane(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blane not found")
		}
		return nil, err
	}
	if !blane.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "blane is not active")
	}
	return blane, nil
}

func (s *service) orderViolations(ctx context.Context, capRepo capacity.Repository, blane *models.Blane, quantity int, now time.Time) ([]Violation, error) {
	var violations []Violation
	if blane.Stock < quantity {
		violations = append(violations, Violation{Ceiling: ViolationStock, Remaining: blane.Stock, Requested: quantity})
	}
	if blane.MaxOrders > 0 {
		total, err := capRepo.OrderedQuantityTotal(ctx, blane.ID)
		if err != nil {
			return nil, err
		}
		if remaining := capacity.RemainingMaxOrders(blane.MaxOrders, total); remaining < quantity {
			violations = append(violations, Violation{Ceiling: ViolationMaxOrders, Remaining: remaining, Requested: quantity})
		}
	}
	if blane.AvailabilityPerDay != nil {
		if *blane.AvailabilityPerDay == 0 {
			violations = append(violations, Violation{Ceiling: ViolationClosed, Requested: quantity})
		} else {
			used, err := capRepo.OrderedQuantityOn(ctx, blane.ID, now)
			if err != nil {
				return nil, err
			}
			if remaining := capacity.RemainingDaily(blane.AvailabilityPerDay, used); remaining < quantity {
				violations = append(violations, Violation{Ceiling: ViolationDaily, Remaining: remaining, Requested: quantity})
			}
		}
	}
	return violations, nil
}

func (s *service) reservationViolations(ctx context.Context, capRepo capacity.Repository, blane *models.Blane, input ReservationInput, date time.Time) ([]Violation, error) {
	var violations []Violation
	if blane.ReservationsRemaining < input.Quantity {
		violations = append(violations, Violation{Ceiling: ViolationPool, Remaining: blane.ReservationsRemaining, Requested: input.Quantity})
	}
	if blane.AvailabilityPerDay != nil {
		if *blane.AvailabilityPerDay == 0 {
			violations = append(violations, Violation{Ceiling: ViolationClosed, Requested: input.Quantity})
		} else {
			used, err := capRepo.ReservedQuantityOn(ctx, blane.ID, date)
			if err != nil {
				return nil, err
			}
			if remaining := capacity.RemainingDaily(blane.AvailabilityPerDay, used); remaining < input.Quantity {
				violations = append(violations, Violation{Ceiling: ViolationDaily, Remaining: remaining, Requested: input.Quantity})
			}
		}
	}
	if blane.MaxPerSlot > 0 {
		var used int
		var err error
		switch blane.SlotKind {
		case enums.SlotKindTime:
			if input.TimeSlot != nil {
				used, err = capRepo.ReservedQuantityForSlot(ctx, blane.ID, date, *input.TimeSlot)
			}
		case enums.SlotKindDateRange:
			if input.EndDate != nil {
				used, err = capRepo.ReservedQuantityForRange(ctx, blane.ID, date, *input.EndDate)
			}
		}
		if err != nil {
			return nil, err
		}
		if remaining := capacity.RemainingSlot(blane.MaxPerSlot, used); remaining < input.Quantity {
			violations = append(violations, Violation{Ceiling: ViolationSlot, Remaining: remaining, Requested: input.Quantity})
		}
	}
	return violations, nil
}

func (s *service) cancellationInfo(storedToken string, now time.Time) CancellationInfo {
	ts := now.Unix()
	return CancellationInfo{
		Timestamp: ts,
		Token:     cancellation.Digest(storedToken, ts),
	}
}

func validateCommon(blaneID uuid.UUID, customer CustomerInput, quantity int, method enums.PaymentMethod) error {
	if blaneID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "blane id required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if customer.Name == "" || customer.Email == "" || customer.Phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name, email and phone required")
	}
	return nil
}

func capacityExceeded(violations []Violation) error {
	return pkgerrors.New(pkgerrors.CodeCapacity, "capacity exceeded").
		WithDetails(map[string]any{
			"requires_confirmation": true,
			"violations":            violations,
		})
}

func amountDue(total decimal.Decimal, partial *decimal.Decimal) decimal.Decimal {
	if partial != nil {
		return *partial
	}
	return total
}

func newCancelToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate cancellation token")
	}
	return hex.EncodeToString(buf), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
