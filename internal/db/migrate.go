package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/jspencer/fieldlink/internal/models"
)

// Migrate creates or updates the fieldlink tables.
func Migrate(g *gorm.DB) error {
	if err := g.AutoMigrate(
		&models.Job{},
		&models.SessionSnapshot{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
