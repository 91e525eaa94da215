package database

import (
	"os"
	"path/filepath"

	"github.com/momo0222/momail-backend/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize creates and returns a database connection
func Initialize(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Email{},
		&models.Action{},
		&models.AgentConfig{},
		&models.Log{},
	); err != nil {
		return err
	}

	// Older databases stored the blacklist default as NULL; normalize so
	// the parse helpers see the documented default.
	db.Model(&models.AgentConfig{}).
		Where("auto_reply_blacklist IS NULL").
		Update("auto_reply_blacklist", models.DefaultBlacklist)

	return nil
}
