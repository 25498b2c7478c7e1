package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/gameradar/internal/models"
)

// SQLCache keeps entries in the cache_entries table through gorm.
// Expired rows are deleted when read and by PurgeExpired.
type SQLCache struct {
	db *gorm.DB
}

// NewSQLCache creates a cache over an already migrated database
func NewSQLCache(db *gorm.DB) *SQLCache {
	return &SQLCache{db: db}
}

func (s *SQLCache) Name() string { return "sqlite" }

// DB exposes the handle so metrics can count rows
func (s *SQLCache) DB() *gorm.DB { return s.db }

func (s *SQLCache) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	if entry.IsExpired() {
		s.db.WithContext(ctx).Delete(&entry)
		return "", false, nil
	}
	return entry.Value, true, nil
}

// Set upserts the entry, resetting its expiry
func (s *SQLCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := time.Now()
	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at", "expires_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (s *SQLCache) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("sqlite purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}
