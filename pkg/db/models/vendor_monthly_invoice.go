package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorMonthlyInvoice freezes one vendor's settlement totals for a month.
// Generation is idempotent per (vendor, month, year); totals are not recomputed
// if the underlying payments change afterwards.
type VendorMonthlyInvoice struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_invoice_period,priority:1"`
	Month    int       `gorm:"column:month;not null;uniqueIndex:idx_invoice_period,priority:2"`
	Year     int       `gorm:"column:year;not null;uniqueIndex:idx_invoice_period,priority:3"`

	TotalTTC        decimal.Decimal `gorm:"column:total_ttc;type:numeric(12,2);not null"`
	TotalCommission decimal.Decimal `gorm:"column:total_commission;type:numeric(12,2);not null"`
	TotalNet        decimal.Decimal `gorm:"column:total_net;type:numeric(12,2);not null"`
	PaymentCount    int             `gorm:"column:payment_count;not null"`

	GeneratedAt time.Time `gorm:"column:generated_at;autoCreateTime"`
}
