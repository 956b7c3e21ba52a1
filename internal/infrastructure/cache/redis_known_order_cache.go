package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betminds/linx-orders/internal/application/ordersync"
)

const defaultKnownOrderPrefix = "linx:orders:known:"

// RedisKnownOrderCache implements ordersync.KnownOrderCache using Redis.
// Several importer instances can share it.
type RedisKnownOrderCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisKnownOrderCache connects to Redis and verifies the connection.
func NewRedisKnownOrderCache(cfg RedisConfig) (*RedisKnownOrderCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisKnownOrderCacheWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisKnownOrderCacheWithClient creates a cache with an existing Redis client
func NewRedisKnownOrderCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisKnownOrderCache {
	if keyPrefix == "" {
		keyPrefix = defaultKnownOrderPrefix
	}
	return &RedisKnownOrderCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Contains reports whether key was added and has not expired.
func (c *RedisKnownOrderCache) Contains(ctx context.Context, key string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check known order: %w", err)
	}
	return exists > 0, nil
}

// Add remembers key for the configured TTL. A zero TTL keeps it forever.
func (c *RedisKnownOrderCache) Add(ctx context.Context, key string) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to remember known order: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisKnownOrderCache) Close() error {
	return c.client.Close()
}

var _ ordersync.KnownOrderCache = (*RedisKnownOrderCache)(nil)
