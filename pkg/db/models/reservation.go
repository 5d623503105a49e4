package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Reservation is a scheduled booking admitted against a blane's daily and
// per-slot ceilings. Time is the discrete slot for time-kind blanes; EndDate
// closes the range for date-kind blanes.
type Reservation struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string     `gorm:"column:code;not null;uniqueIndex"`
	BlaneID    uuid.UUID  `gorm:"column:blane_id;type:uuid;not null"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	VendorID   *uuid.UUID `gorm:"column:vendor_id;type:uuid"`

	Date          time.Time  `gorm:"column:date;type:date;not null"`
	Time          *string    `gorm:"column:time"`
	EndDate       *time.Time `gorm:"column:end_date;type:date"`
	NumberPersons int        `gorm:"column:number_persons;not null;default:1"`
	Quantity      int        `gorm:"column:quantity;not null"`

	PaymentMethod enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	Status        enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalPrice    decimal.Decimal         `gorm:"column:total_price;type:numeric(10,2);not null"`
	PartialPrice  *decimal.Decimal        `gorm:"column:partial_price;type:numeric(10,2)"`

	Comments *string `gorm:"column:comments"`
	Source   *string `gorm:"column:source"`

	CancelToken          string    `gorm:"column:cancel_token;not null"`
	CancelTokenCreatedAt time.Time `gorm:"column:cancel_token_created_at;not null"`

	Blane    *Blane    `gorm:"foreignKey:BlaneID"`
	Customer *Customer `gorm:"foreignKey:CustomerID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
