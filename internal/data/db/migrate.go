package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/govgen-backend/internal/domain"
)

// AutoMigrateAll migrates every model one at a time so a failure names the table.
func AutoMigrateAll(db *gorm.DB) error {
	for _, m := range domain.Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
