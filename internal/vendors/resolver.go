package vendors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// Resolver maps a blane to its owning vendor. Blanes created before the vendor
// migration carry only a commerce name; those fall back to an audited
// company-name match. The fallback lives here and nowhere else so it can be
// deleted once the backfill lands.
type Resolver interface {
	ResolveOwner(ctx context.Context, blane *models.Blane) (*uuid.UUID, error)
}

type resolver struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewResolver builds a vendor resolver bound to the provided DB.
func NewResolver(db *gorm.DB, logg *logger.Logger) Resolver {
	return &resolver{db: db, logg: logg}
}

func (r *resolver) ResolveOwner(ctx context.Context, blane *models.Blane) (*uuid.UUID, error) {
	if blane == nil {
		return nil, errors.New("blane is required")
	}
	if blane.VendorID != nil {
		return blane.VendorID, nil
	}
	if blane.CommerceName == nil || *blane.CommerceName == "" {
		return nil, nil
	}

	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("company_name = ?", *blane.CommerceName).
		First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if r.logg != nil {
		fields := map[string]any{
			"blane_id":  blane.ID.String(),
			"vendor_id": vendor.ID.String(),
			"matched":   "company_name",
		}
		r.logg.Warn(r.logg.WithFields(ctx, fields), "resolved vendor via legacy commerce name")
	}
	return &vendor.ID, nil
}
