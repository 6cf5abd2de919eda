package persistence

import (
	"fmt"

	"github.com/erp/catalogsync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or alters the tables of every model
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
