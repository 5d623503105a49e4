package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
)

// Repository persists admitted bookings and their side effects on the blane.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBlane(ctx context.Context, id uuid.UUID) (*models.Blane, error)
	GetOrCreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error)
	OrderCodeExists(ctx context.Context, code string) (bool, error)
	ReservationCodeExists(ctx context.Context, code string) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
	AdjustStock(ctx context.Context, blaneID uuid.UUID, delta int) error
	AdjustReservationsRemaining(ctx context.Context, blaneID uuid.UUID, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a booking repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBlane(ctx context.Context, id uuid.UUID) (*models.Blane, error) {
	var blane models.Blane
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&blane).Error
	if err != nil {
		return nil, err
	}
	return &blane, nil
}

// GetOrCreateCustomer reuses the customer keyed by email, refreshing contact
// fields from the latest submission.
func (r *repository) GetOrCreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("email = ?", input.Email).First(&customer).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		customer = models.Customer{
			ID:      uuid.New(),
			Name:    input.Name,
			Email:   input.Email,
			Phone:   input.Phone,
			City:    input.City,
			Address: input.Address,
		}
		if err := r.db.WithContext(ctx).Create(&customer).Error; err != nil {
			return nil, err
		}
		return &customer, nil
	}

	updates := map[string]any{
		"name":  input.Name,
		"phone": input.Phone,
	}
	if input.City != nil {
		updates["city"] = input.City
	}
	if input.Address != nil {
		updates["address"] = input.Address
	}
	if err := r.db.WithContext(ctx).Model(&customer).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) OrderCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *repository) ReservationCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// AdjustStock applies the delta without clamping. Overridden admissions are
// allowed to drive the counter negative; the value is the audit trail.
func (r *repository) AdjustStock(ctx context.Context, blaneID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Blane{}).
		Where("id = ?", blaneID).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta)).Error
}

func (r *repository) AdjustReservationsRemaining(ctx context.Context, blaneID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Blane{}).
		Where("id = ?", blaneID).
		UpdateColumn("reservations_remaining", gorm.Expr("reservations_remaining + ?", delta)).Error
}
