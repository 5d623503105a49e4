package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// VendorPayment is one settlement line per paid online booking. Cash bookings
// never produce one. Week bounds are the Monday-Sunday bucket of PaymentDate,
// frozen at creation.
type VendorPayment struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null"`
	OrderID       *uuid.UUID `gorm:"column:order_id;type:uuid"`
	ReservationID *uuid.UUID `gorm:"column:reservation_id;type:uuid"`

	TotalAmountTTC        decimal.Decimal `gorm:"column:total_amount_ttc;type:numeric(10,2);not null"`
	PaymentType           enums.PaymentType `gorm:"column:payment_type;type:text;not null"`
	CommissionRateApplied decimal.Decimal `gorm:"column:commission_rate_applied;type:numeric(6,3);not null"`
	CommissionExclVAT     decimal.Decimal `gorm:"column:commission_excl_vat;type:numeric(10,2);not null"`
	CommissionVAT         decimal.Decimal `gorm:"column:commission_vat;type:numeric(10,2);not null"`
	CommissionInclVAT     decimal.Decimal `gorm:"column:commission_incl_vat;type:numeric(10,2);not null"`
	NetAmountTTC          decimal.Decimal `gorm:"column:net_amount_ttc;type:numeric(10,2);not null"`

	TransferStatus enums.TransferStatus `gorm:"column:transfer_status;type:text;not null;default:'pending'"`
	TransferDate   *time.Time           `gorm:"column:transfer_date"`
	PaymentDate    time.Time            `gorm:"column:payment_date;not null"`
	WeekStart      time.Time            `gorm:"column:week_start;type:date;not null"`
	WeekEnd        time.Time            `gorm:"column:week_end;type:date;not null"`

	DebitAccount  *string `gorm:"column:debit_account"`
	CreditAccount *string `gorm:"column:credit_account"`
	Reason        *string `gorm:"column:reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
