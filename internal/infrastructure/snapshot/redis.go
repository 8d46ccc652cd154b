package snapshot

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis for cross-instance snapshot
// invalidation. When Redis is unreachable it returns nil and the provider
// falls back to interval-only refresh.
func NewRedisClient(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, snapshot invalidation disabled",
			zap.String("addr", cfg.Addr()),
			zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
