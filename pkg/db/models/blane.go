package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Blane is the sellable deal. Order-type blanes consume Stock; reservation-type
// blanes consume per-day and per-slot capacity plus ReservationsRemaining.
type Blane struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID   *uuid.UUID      `gorm:"column:vendor_id;type:uuid"`
	CategoryID *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Name       string          `gorm:"column:name;not null"`
	Type       enums.BlaneType `gorm:"column:type;type:text;not null"`
	SlotKind   enums.SlotKind  `gorm:"column:slot_kind;type:text;not null;default:'date'"`
	IsDigital  bool            `gorm:"column:is_digital;not null;default:false"`
	City       *string         `gorm:"column:city"`

	Price            decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	DeliveryInCity   decimal.Decimal `gorm:"column:delivery_in_city;type:numeric(10,2);not null;default:0"`
	DeliveryOutCity  decimal.Decimal `gorm:"column:delivery_out_city;type:numeric(10,2);not null;default:0"`
	PartialPercent   *int            `gorm:"column:partial_percent"`

	// Capacity knobs. AvailabilityPerDay nil means unlimited; zero means the
	// blane is closed for that day.
	Stock                 int  `gorm:"column:stock;not null;default:0"`
	MaxOrders             int  `gorm:"column:max_orders;not null;default:0"`
	AvailabilityPerDay    *int `gorm:"column:availability_per_day"`
	MaxPerSlot            int  `gorm:"column:max_per_slot;not null;default:0"`
	ReservationsRemaining int  `gorm:"column:reservations_remaining;not null;default:0"`

	// CommerceName is the legacy pre-migration vendor match; used only when
	// VendorID is null. See vendors.ResolveOwner.
	CommerceName *string `gorm:"column:commerce_name"`

	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// DailyCapacityUnlimited reports whether the per-day ceiling is disabled.
func (b *Blane) DailyCapacityUnlimited() bool {
	return b.AvailabilityPerDay == nil
}
