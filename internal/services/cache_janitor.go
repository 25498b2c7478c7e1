package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/gameradar/internal/cache"
	"github.com/codyseavey/gameradar/internal/metrics"
)

const defaultPurgeInterval = 10 * time.Minute

// CacheJanitor periodically removes expired entries from cache backends that
// do not expire keys themselves.
type CacheJanitor struct {
	backend  cache.Cache
	interval time.Duration
	mu       sync.RWMutex

	// Stats
	runs          int
	purgedLastRun int64
	purgedTotal   int64
	lastRunTime   time.Time
	lastError     string
}

type JanitorStatus struct {
	Backend       string    `json:"backend"`
	Enabled       bool      `json:"enabled"`
	Interval      string    `json:"interval"`
	Runs          int       `json:"runs"`
	PurgedLastRun int64     `json:"purged_last_run"`
	PurgedTotal   int64     `json:"purged_total"`
	LastRunTime   time.Time `json:"last_run_time"`
	NextRunTime   time.Time `json:"next_run_time"`
	LastError     string    `json:"last_error,omitempty"`
}

func NewCacheJanitor(backend cache.Cache, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &CacheJanitor{
		backend:  backend,
		interval: interval,
	}
}

// Enabled reports whether the backend needs explicit purging
func (j *CacheJanitor) Enabled() bool {
	_, ok := j.backend.(cache.Purger)
	return ok
}

// Start runs the purge loop until ctx is cancelled. Backends without
// Purger support make it return immediately.
func (j *CacheJanitor) Start(ctx context.Context) {
	if !j.Enabled() {
		slog.Info("cache janitor: backend expires entries itself, not starting", "backend", j.backend.Name())
		return
	}

	slog.Info("cache janitor started", "backend", j.backend.Name(), "interval", j.interval)

	// Run immediately on startup
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache janitor stopping")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce purges expired entries and refreshes the cache size gauge
func (j *CacheJanitor) RunOnce(ctx context.Context) int64 {
	purger, ok := j.backend.(cache.Purger)
	if !ok {
		return 0
	}

	purged, err := purger.PurgeExpired(ctx)

	j.mu.Lock()
	j.runs++
	j.lastRunTime = time.Now()
	if err != nil {
		j.lastError = err.Error()
		j.purgedLastRun = 0
	} else {
		j.lastError = ""
		j.purgedLastRun = purged
		j.purgedTotal += purged
	}
	j.mu.Unlock()

	if err != nil {
		metrics.CacheErrors.WithLabelValues(j.backend.Name(), "purge").Inc()
		slog.Warn("cache janitor: purge failed", "backend", j.backend.Name(), "error", err)
		return 0
	}

	metrics.CachePurgedTotal.Add(float64(purged))
	if withDB, ok := j.backend.(interface{ DB() *gorm.DB }); ok {
		metrics.UpdateCacheMetrics(ctx, withDB.DB())
	}
	if purged > 0 {
		slog.Info("cache janitor: purged expired entries", "backend", j.backend.Name(), "count", purged)
	}
	return purged
}

// GetStatus returns the current status
func (j *CacheJanitor) GetStatus() JanitorStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()

	status := JanitorStatus{
		Backend:       j.backend.Name(),
		Enabled:       j.Enabled(),
		Interval:      j.interval.String(),
		Runs:          j.runs,
		PurgedLastRun: j.purgedLastRun,
		PurgedTotal:   j.purgedTotal,
		LastRunTime:   j.lastRunTime,
		LastError:     j.lastError,
	}
	if status.Enabled && !j.lastRunTime.IsZero() {
		status.NextRunTime = j.lastRunTime.Add(j.interval)
	}
	return status
}
