package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory implementation of the CacheRepository interface.
// Records do not survive a restart.
type MemoryCache struct {
	entries     map[string]core.VerificationRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	maxAge      time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryCache creates a new in-memory cache. Records older than maxAge are
// evicted every cleanupFreq; a zero value for either disables eviction.
func NewMemoryCache(logger *zap.Logger, maxAge, cleanupFreq time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries:     make(map[string]core.VerificationRecord),
		logger:      logger,
		maxAge:      maxAge,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if maxAge > 0 && cleanupFreq > 0 {
		go c.startCleanupTask()
	}

	return c
}

// Get retrieves the stored record for a URL
func (c *MemoryCache) Get(ctx context.Context, url string) (*core.VerificationRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil, ErrNotFound
	}

	record := entry
	return &record, nil
}

// Set stores a record, replacing any previous one for the same URL
func (c *MemoryCache) Set(ctx context.Context, record *core.VerificationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[record.URL] = *record
	return nil
}

// Len returns the number of stored records
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes records last checked more than maxAge before now
func (c *MemoryCache) Cleanup(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if now.Sub(entry.LastChecked) >= c.maxAge {
			delete(c.entries, key)
			evicted++
		}
	}

	c.logger.Debug("Evicted stale cache records", zap.Int("evicted_count", evicted))
	return evicted
}

// startCleanupTask evicts stale records until Stop is called
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.Cleanup(now)
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Debug("Stopping memory cache", zap.Int("records", c.Len()))
		close(c.stopCh)
	})
}
