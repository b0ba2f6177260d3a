package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-threads/internal/domain"
)

// AutoMigrateAll creates or updates the thread engine tables and their unique keys.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.AllModels()...)
}
