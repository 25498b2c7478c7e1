package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/gameradar/internal/models"
)

// RunMigrations migrates the schema and drops cache rows that expired while
// the process was down. Safe to run repeatedly.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.CacheEntry{}); err != nil {
		return fmt.Errorf("auto-migrate cache_entries: %w", err)
	}

	result := db.Where("expires_at <= ?", time.Now()).Delete(&models.CacheEntry{})
	if result.Error != nil {
		slog.Warn("failed to drop expired cache entries", "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("dropped expired cache entries", "count", result.RowsAffected)
	}
	return nil
}
