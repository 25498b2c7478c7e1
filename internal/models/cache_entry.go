package models

import "time"

// CacheEntry is a row of the SQLite-backed price cache.
// Value holds the serialized payload, usually a JSON array of GamePrice.
type CacheEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:cache_key;uniqueIndex;not null;size:255" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

// IsExpired returns true if the cache entry has expired
func (c *CacheEntry) IsExpired() bool {
	return !time.Now().Before(c.ExpiresAt)
}
