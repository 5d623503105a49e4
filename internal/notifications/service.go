package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
)

// Service enqueues notifications transactionally with the state change that
// triggered them. Delivery is out of scope here; see the outbox worker.
type Service interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind enums.NotificationKind, recipient string, payload map[string]any) error
}

type service struct {
	repo Repository
}

// NewService builds the notifications service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Enqueue(ctx context.Context, tx *gorm.DB, kind enums.NotificationKind, recipient string, payload map[string]any) error {
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification kind")
	}
	if recipient == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal notification payload")
	}
	row := &models.Notification{
		ID:        uuid.New(),
		Kind:      kind,
		Recipient: recipient,
		Payload:   raw,
	}
	return s.repo.WithTx(tx).Create(ctx, row)
}
