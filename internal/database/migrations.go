package database

import (
	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserProfile{},
		&models.ParentConfirmation{},
		&models.InstagramMedia{},
		&models.AuditLog{},
	)
}
