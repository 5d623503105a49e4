package cancellation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Repository loads bookings by public code and applies the cancellation side
// effects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByCode(ctx context.Context, code string) (*models.Order, error)
	FindReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	// MarkOrderCancelled flips the order to cancelled only if it is still
	// pending, reporting whether this call won the transition.
	MarkOrderCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReservationCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	RestoreStock(ctx context.Context, blaneID uuid.UUID, quantity int) error
	RestoreReservations(ctx context.Context, blaneID uuid.UUID, quantity int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cancellation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("code = ?", code).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("code = ?", code).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) MarkOrderCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Update("status", enums.OrderStatusCancelled)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkReservationCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationStatusPending).
		Update("status", enums.ReservationStatusCancelled)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) RestoreStock(ctx context.Context, blaneID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Blane{}).
		Where("id = ?", blaneID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}

func (r *repository) RestoreReservations(ctx context.Context, blaneID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Blane{}).
		Where("id = ?", blaneID).
		UpdateColumn("reservations_remaining", gorm.Expr("reservations_remaining + ?", quantity)).Error
}
