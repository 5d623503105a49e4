package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor is the merchant that owns blanes and receives settlements.
type Vendor struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyName    string           `gorm:"column:company_name;not null"`
	Email          string           `gorm:"column:email;not null"`
	Phone          *string          `gorm:"column:phone"`
	City           *string          `gorm:"column:city"`
	CommissionRate *decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2)"`
	BankAccount    *string          `gorm:"column:bank_account"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
