package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorCommission is a configured rate row. VendorID null means the row is a
// category-wide fallback; otherwise it binds one vendor to one category.
type VendorCommission struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID   *uuid.UUID      `gorm:"column:vendor_id;type:uuid"`
	CategoryID uuid.UUID       `gorm:"column:category_id;type:uuid;not null"`
	Rate       decimal.Decimal `gorm:"column:rate;type:numeric(5,2);not null"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
