package commission

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
)

// Repository reads the rows that feed rate resolution.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	// VendorCategoryRate returns the active configured rate for the vendor and
	// category pair, or nil when none is configured.
	VendorCategoryRate(ctx context.Context, vendorID, categoryID uuid.UUID) (*decimal.Decimal, error)
	// CategoryWideRate returns the active vendor-agnostic rate for the
	// category, or nil when none is configured.
	CategoryWideRate(ctx context.Context, categoryID uuid.UUID) (*decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commission repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) VendorCategoryRate(ctx context.Context, vendorID, categoryID uuid.UUID) (*decimal.Decimal, error) {
	var row models.VendorCommission
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND category_id = ? AND active = ?", vendorID, categoryID, true).
		Order("updated_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.Rate, nil
}

func (r *repository) CategoryWideRate(ctx context.Context, categoryID uuid.UUID) (*decimal.Decimal, error) {
	var row models.VendorCommission
	err := r.db.WithContext(ctx).
		Where("vendor_id IS NULL AND category_id = ? AND active = ?", categoryID, true).
		Order("updated_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.Rate, nil
}
