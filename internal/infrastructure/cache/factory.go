package cache

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/application/ordersync"
	"github.com/betminds/linx-orders/internal/infrastructure/config"
)

// KnownOrderCache is a closable ordersync.KnownOrderCache.
type KnownOrderCache interface {
	ordersync.KnownOrderCache
	io.Closer
}

// KnownOrderCacheFactory creates known-order caches based on configuration
type KnownOrderCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// KnownOrderCacheFactoryOption is a functional option for configuring the factory
type KnownOrderCacheFactoryOption func(*KnownOrderCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) KnownOrderCacheFactoryOption {
	return func(f *KnownOrderCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) KnownOrderCacheFactoryOption {
	return func(f *KnownOrderCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewKnownOrderCacheFactory creates a new factory
func NewKnownOrderCacheFactory(cfg config.RedisConfig, opts ...KnownOrderCacheFactoryOption) *KnownOrderCacheFactory {
	f := &KnownOrderCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed cache
func (f *KnownOrderCacheFactory) CreateRedisCache() (KnownOrderCache, error) {
	c, err := NewRedisKnownOrderCache(RedisConfig{
		Host:      f.redisConfig.Host,
		Port:      f.redisConfig.Port,
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.redisConfig.KeyPrefix,
		TTL:       f.redisConfig.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis known-order cache: %w", err)
	}
	return c, nil
}

// CreateInMemoryCache creates a process-local cache
func (f *KnownOrderCacheFactory) CreateInMemoryCache() KnownOrderCache {
	return NewInMemoryKnownOrderCache(f.redisConfig.TTL, DefaultInMemoryCapacity)
}

// CreateCache returns nil when the cache is disabled. Otherwise it tries
// Redis first and falls back to memory when allowed.
func (f *KnownOrderCacheFactory) CreateCache() (KnownOrderCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Debug("known-order cache disabled")
		return nil, nil
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis known-order cache", zap.String("addr", f.redisConfig.Address()))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for known-order cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory known-order cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
