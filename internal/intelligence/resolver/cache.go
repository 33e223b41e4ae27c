package resolver

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/database/redis"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
)

// Cache stores successful resolutions by normalised name.
type Cache interface {
	Get(ctx context.Context, key string) (*Resolution, bool)
	Set(ctx context.Context, key string, res *Resolution)
	// Kind labels cache metrics.
	Kind() string
}

// MemoryCache is a process-local cache with expiry.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache expires entries after ttl and purges every cleanup.
func NewMemoryCache(ttl, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, cleanup)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Resolution, bool) {
	if x, found := c.cache.Get(key); found {
		return x.(*Resolution), true
	}
	return nil, false
}

func (c *MemoryCache) Set(_ context.Context, key string, res *Resolution) {
	stored := *res
	c.cache.Set(key, &stored, gocache.DefaultExpiration)
}

func (c *MemoryCache) Kind() string { return "memory" }

// Len returns the number of unexpired entries.
func (c *MemoryCache) Len() int { return c.cache.ItemCount() }

// RedisCache shares resolutions between replicas.
type RedisCache struct {
	cache  *redis.Cache[Resolution]
	logger logging.Logger
}

// NewRedisCache stores entries at prefix+name for ttl.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger logging.Logger) *RedisCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RedisCache{
		cache:  redis.NewCache[Resolution](client, redis.WithPrefix(prefix), redis.WithTTL(ttl)),
		logger: logger,
	}
}

// Get treats every Redis error as a miss; resolution proceeds upstream.
func (c *RedisCache) Get(ctx context.Context, key string) (*Resolution, bool) {
	res, err := c.cache.Get(ctx, key)
	if err != nil {
		if err != redis.ErrCacheMiss {
			c.logger.Warn("resolver cache read failed", logging.String("key", key), logging.Err(err))
		}
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res *Resolution) {
	if err := c.cache.Set(ctx, key, *res, 0); err != nil {
		c.logger.Warn("resolver cache write failed", logging.String("key", key), logging.Err(err))
	}
}

func (c *RedisCache) Kind() string { return "redis" }

// NewCacheFromConfig builds the configured backend. It returns nil for
// "none", and for "redis" when client is nil.
func NewCacheFromConfig(cfg config.CacheConfig, client *redis.Client, logger logging.Logger) Cache {
	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(cfg.TTL, cfg.CleanupInterval)
	case "redis":
		if client == nil {
			return nil
		}
		prefix := cfg.KeyPrefix
		if prefix == "" {
			prefix = config.DefaultCacheKeyPrefix
		}
		return NewRedisCache(client, prefix, cfg.TTL, logger)
	default:
		return nil
	}
}

//Personal.AI order the ending
