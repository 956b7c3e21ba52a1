package cache

import (
	"context"
	"sync"
	"time"

	"github.com/betminds/linx-orders/internal/application/ordersync"
)

// DefaultInMemoryCapacity bounds the in-memory cache when no capacity is given.
const DefaultInMemoryCapacity = 100_000

// InMemoryKnownOrderCache implements ordersync.KnownOrderCache with a map.
// It is process local; once full, new keys are dropped until the cleanup
// loop evicts expired ones.
type InMemoryKnownOrderCache struct {
	mu        sync.RWMutex
	entries   map[string]time.Time
	ttl       time.Duration
	capacity  int
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryKnownOrderCache creates the cache and starts its cleanup loop.
func NewInMemoryKnownOrderCache(ttl time.Duration, capacity int) *InMemoryKnownOrderCache {
	if capacity <= 0 {
		capacity = DefaultInMemoryCapacity
	}
	c := &InMemoryKnownOrderCache{
		entries:  make(map[string]time.Time),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Contains reports whether key is present and not expired.
func (c *InMemoryKnownOrderCache) Contains(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expiresAt, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if !expiresAt.IsZero() && c.now().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// Add remembers key. A zero TTL never expires.
func (c *InMemoryKnownOrderCache) Add(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		return nil
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	c.entries[key] = expiresAt
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryKnownOrderCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryKnownOrderCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryKnownOrderCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, expiresAt := range c.entries {
		if !expiresAt.IsZero() && now.After(expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries (for testing/monitoring)
func (c *InMemoryKnownOrderCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ ordersync.KnownOrderCache = (*InMemoryKnownOrderCache)(nil)
