package commission

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
)

// settingsRowID is the primary key of the single global settings row, seeded
// by migration.
const settingsRowID = 1

// LoadSettings fetches the global commission settings once at process start.
// A missing row is a deployment error, not a runtime condition to paper over.
func LoadSettings(ctx context.Context, db *gorm.DB) (models.CommissionSettings, error) {
	var settings models.CommissionSettings
	err := db.WithContext(ctx).Where("id = ?", settingsRowID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settings, fmt.Errorf("commission settings row %d not seeded", settingsRowID)
		}
		return settings, fmt.Errorf("loading commission settings: %w", err)
	}
	return settings, nil
}
