package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Repository persists payment settlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByCode(ctx context.Context, code string) (*models.Order, error)
	FindReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	// MarkOrderPaid flips the order to paid only if it is still pending,
	// reporting whether this call won the transition.
	MarkOrderPaid(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReservationPaid(ctx context.Context, id uuid.UUID) (bool, error)
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	TransactionExists(ctx context.Context, gatewayTransID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
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
		Preload("Blane").
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
		Preload("Blane").
		Preload("Customer").
		Where("code = ?", code).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) MarkOrderPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Update("status", enums.OrderStatusPaid)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkReservationPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationStatusPending).
		Update("status", enums.ReservationStatusPaid)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) TransactionExists(ctx context.Context, gatewayTransID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("gateway_trans_id = ?", gatewayTransID).
		Count(&count).Error
	return count > 0, err
}
