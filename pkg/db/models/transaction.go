package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is the immutable record of one verified gateway capture. Exactly
// one of OrderID / ReservationID is set. GatewayTransID carries a unique index
// so a replayed callback cannot double-create.
type Transaction struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       *uuid.UUID `gorm:"column:order_id;type:uuid"`
	ReservationID *uuid.UUID `gorm:"column:reservation_id;type:uuid"`

	GatewayTransID string          `gorm:"column:gateway_trans_id;not null;uniqueIndex"`
	ProcReturnCode string          `gorm:"column:proc_return_code;not null"`
	AuthCode       *string         `gorm:"column:auth_code"`
	Response       string          `gorm:"column:response;not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	TrxDate        *string         `gorm:"column:trx_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
