package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is reference data; only its default commission rate participates in
// the settlement flow.
type Category struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string           `gorm:"column:name;not null"`
	DefaultCommissionRate *decimal.Decimal `gorm:"column:default_commission_rate;type:numeric(5,2)"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
