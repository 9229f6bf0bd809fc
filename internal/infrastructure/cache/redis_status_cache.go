package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orderdesk/backend/internal/domain/integration"
)

// statusKeyPrefix namespaces tracking status keys in Redis
const statusKeyPrefix = "orderdesk:tracking:status:"

// RedisStatusCache implements StatusCache on Redis, for deployments where
// multiple engine instances share one carrier-status view.
type RedisStatusCache struct {
	client *redis.Client
}

// NewRedisStatusCache creates a Redis-backed status cache and verifies
// connectivity with a ping.
func NewRedisStatusCache(ctx context.Context, addr, password string, db int) (*RedisStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStatusCache{client: client}, nil
}

// Get returns the cached status for a tracking id
func (c *RedisStatusCache) Get(ctx context.Context, trackingID string) (integration.TrackingUpdate, bool, error) {
	raw, err := c.client.Get(ctx, statusKeyPrefix+trackingID).Bytes()
	if errors.Is(err, redis.Nil) {
		return integration.TrackingUpdate{}, false, nil
	}
	if err != nil {
		return integration.TrackingUpdate{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var update integration.TrackingUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		// Corrupt entry; treat as a miss so the caller refetches.
		return integration.TrackingUpdate{}, false, nil
	}
	return update, true, nil
}

// Set stores a status with the given TTL
func (c *RedisStatusCache) Set(ctx context.Context, trackingID string, update integration.TrackingUpdate, ttl time.Duration) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal tracking update: %w", err)
	}
	if err := c.client.Set(ctx, statusKeyPrefix+trackingID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (c *RedisStatusCache) Close() error {
	return c.client.Close()
}
