package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// VendorPaymentLog is an append-only audit trail of transfer status moves.
// VendorPaymentID is null for bulk operations; AffectedCount carries the size.
type VendorPaymentLog struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorPaymentID *uuid.UUID           `gorm:"column:vendor_payment_id;type:uuid"`
	PreviousStatus  enums.TransferStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus       enums.TransferStatus `gorm:"column:new_status;type:text;not null"`
	AdminID         uuid.UUID            `gorm:"column:admin_id;type:uuid;not null"`
	Note            *string              `gorm:"column:note"`
	AffectedCount   int                  `gorm:"column:affected_count;not null;default:1"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}
