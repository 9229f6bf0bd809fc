package cache

import (
	"context"
	"sync"
	"time"

	"github.com/orderdesk/backend/internal/domain/integration"
)

// entry holds a cached status with its expiration
type entry struct {
	update    integration.TrackingUpdate
	expiresAt time.Time
}

// InMemoryStatusCache implements StatusCache with an in-process map.
// Suitable for single-instance deployments and tests. A background goroutine
// evicts expired entries.
type InMemoryStatusCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryStatusCache creates an in-memory status cache and starts its
// cleanup goroutine.
func NewInMemoryStatusCache() *InMemoryStatusCache {
	c := &InMemoryStatusCache{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get returns the cached status for a tracking id if present and unexpired
func (c *InMemoryStatusCache) Get(_ context.Context, trackingID string) (integration.TrackingUpdate, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[trackingID]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return integration.TrackingUpdate{}, false, nil
	}
	return e.update, true, nil
}

// Set stores a status with the given TTL
func (c *InMemoryStatusCache) Set(_ context.Context, trackingID string, update integration.TrackingUpdate, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[trackingID] = entry{update: update, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryStatusCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}

func (c *InMemoryStatusCache) cleanupLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *InMemoryStatusCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}
