package metrics

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/gameradar/internal/models"
)

// UpdateCacheMetrics counts live rows in the SQLite price cache and updates
// the cache_entries gauge. Call this after a purge or periodically.
func UpdateCacheMetrics(ctx context.Context, db *gorm.DB) {
	if db == nil {
		return
	}

	var entries int64
	err := db.WithContext(ctx).Model(&models.CacheEntry{}).
		Where("expires_at > ?", time.Now()).
		Count(&entries).Error
	if err != nil {
		slog.Warn("metrics: failed to count cache entries", "error", err)
		return
	}
	CacheEntries.Set(float64(entries))
}
