package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Notification is an outbox row: the backend records that a notification must
// go out and with what payload; an external worker handles delivery.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind      enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Recipient string                 `gorm:"column:recipient;not null"`
	Payload   json.RawMessage        `gorm:"column:payload;type:jsonb;not null"`
	SentAt    *time.Time             `gorm:"column:sent_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
