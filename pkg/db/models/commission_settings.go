package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionSettings is the single global settings row. It is loaded once at
// process start and injected into the commission engine, never fetched lazily.
type CommissionSettings struct {
	ID                 int             `gorm:"column:id;primaryKey"`
	VATRate            decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,2);not null"`
	PartialPaymentRate decimal.Decimal `gorm:"column:partial_payment_rate;type:numeric(5,2);not null"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
