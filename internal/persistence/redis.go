package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/cache"
	"github.com/spec-kit/maintenance-service/internal/config"
)

const redisPingTimeout = 3 * time.Second

// Redis holds the optional TTL store client. Reachable is false when the
// server did not answer at startup.
type Redis struct {
	Client    *redis.Client
	Reachable bool
}

// NewRedis connects to Redis when an address is configured. An empty
// address yields a Redis with no client.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; using in-process cache")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis; using in-process cache", zap.String("addr", cfg.Addr), zap.Error(err))
		return &Redis{Client: client}
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return &Redis{Client: client, Reachable: true}
}

// Store returns a key/value store under prefix: Redis when it answered at
// startup, otherwise process memory.
func (r *Redis) Store(prefix string) cache.Store {
	if r == nil || r.Client == nil || !r.Reachable {
		return cache.NewMemoryStore()
	}
	return cache.NewRedisStore(r.Client, prefix)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
