package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Order is a one-shot purchase admitted against a blane's stock.
type Order struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string     `gorm:"column:code;not null;uniqueIndex"`
	BlaneID    uuid.UUID  `gorm:"column:blane_id;type:uuid;not null"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	VendorID   *uuid.UUID `gorm:"column:vendor_id;type:uuid"`

	Quantity      int                 `gorm:"column:quantity;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalPrice    decimal.Decimal     `gorm:"column:total_price;type:numeric(10,2);not null"`
	PartialPrice  *decimal.Decimal    `gorm:"column:partial_price;type:numeric(10,2)"`

	DeliveryAddress *string `gorm:"column:delivery_address"`
	City            *string `gorm:"column:city"`
	Comments        *string `gorm:"column:comments"`
	Source          *string `gorm:"column:source"`

	CancelToken          string    `gorm:"column:cancel_token;not null"`
	CancelTokenCreatedAt time.Time `gorm:"column:cancel_token_created_at;not null"`

	Blane    *Blane    `gorm:"foreignKey:BlaneID"`
	Customer *Customer `gorm:"foreignKey:CustomerID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
