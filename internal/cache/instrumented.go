package cache

import (
	"context"
	"time"

	"github.com/codyseavey/gameradar/internal/metrics"
)

// Instrumented records hit, miss and error counters for the wrapped backend
type Instrumented struct {
	next Cache
}

func NewInstrumented(next Cache) *Instrumented {
	return &Instrumented{next: next}
}

func (c *Instrumented) Name() string { return c.next.Name() }

func (c *Instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheErrors.WithLabelValues(c.next.Name(), "get").Inc()
	case ok:
		metrics.CacheHits.WithLabelValues(c.next.Name()).Inc()
	default:
		metrics.CacheMisses.WithLabelValues(c.next.Name()).Inc()
	}
	return val, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := c.next.Set(ctx, key, value, ttl)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(c.next.Name(), "set").Inc()
	}
	return err
}
