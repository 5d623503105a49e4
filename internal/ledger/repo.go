package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	"github.com/amineouhani/blanes-backend/pkg/pagination"
)

// ListFilter narrows ledger listings.
type ListFilter struct {
	VendorID *uuid.UUID
	Status   *enums.TransferStatus
}

// Repository persists settlement lines and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.VendorPayment) error
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VendorPayment, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.VendorPayment, string, error)
	// UpdateStatus applies the fields to all rows in ids that currently hold
	// one of fromStatuses, returning how many moved.
	UpdateStatus(ctx context.Context, ids []uuid.UUID, fromStatuses []enums.TransferStatus, fields map[string]any) (int64, error)
	AppendLog(ctx context.Context, log *models.VendorPaymentLog) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.VendorPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VendorPayment, error) {
	var rows []models.VendorPayment
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.VendorPayment, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.db.WithContext(ctx).Model(&models.VendorPayment{})
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		q = q.Where("transfer_status = ?", *filter.Status)
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.VendorPayment
	err = q.Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (r *repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, fromStatuses []enums.TransferStatus, fields map[string]any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayment{}).
		Where("id IN ? AND transfer_status IN ?", ids, fromStatuses).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repository) AppendLog(ctx context.Context, log *models.VendorPaymentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
