package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/infrastructure/config"
)

// NewStatusCache builds a StatusCache from configuration: Redis when
// enabled, otherwise the in-memory implementation.
func NewStatusCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (StatusCache, error) {
	if !cfg.Enabled {
		logger.Info("using in-memory tracking status cache")
		return NewInMemoryStatusCache(), nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	redisCache, err := NewRedisStatusCache(ctx, addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("using redis tracking status cache", zap.String("addr", addr))
	return redisCache, nil
}
