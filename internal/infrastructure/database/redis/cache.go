package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

const (
	DefaultKeyPrefix = "isoscope:"
	DefaultCacheTTL  = 24 * time.Hour
	DefaultJitter    = 0.1
)

// Cache stores JSON-encoded values of one type under a key prefix.
type Cache[T any] struct {
	client *Client
	prefix string
	ttl    time.Duration
	jitter float64
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	prefix string
	ttl    time.Duration
	jitter float64
}

func WithPrefix(prefix string) CacheOption {
	return func(o *cacheOptions) { o.prefix = prefix }
}

// WithTTL sets the expiry used when Set is given zero.
func WithTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithJitter spreads expiries by up to +/- fraction of the ttl. Zero
// disables it.
func WithJitter(fraction float64) CacheOption {
	return func(o *cacheOptions) {
		if fraction >= 0 && fraction < 1 {
			o.jitter = fraction
		}
	}
}

func NewCache[T any](client *Client, opts ...CacheOption) *Cache[T] {
	o := cacheOptions{prefix: DefaultKeyPrefix, ttl: DefaultCacheTTL, jitter: DefaultJitter}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{client: client, prefix: o.prefix, ttl: o.ttl, jitter: o.jitter}
}

func (c *Cache[T]) key(k string) string { return c.prefix + k }

func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	var v T
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return v, ErrCacheMiss
	}
	if err != nil {
		return v, errors.Wrap(err, errors.ErrCodeCacheError, "cache get").WithDetail(key)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Wrap(err, errors.ErrCodeSerialization, "cache decode").WithDetail(key)
	}
	return v, nil
}

// Set stores v. A zero ttl uses the cache default.
func (c *Cache[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache encode").WithDetail(key)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, c.key(key), data, c.spread(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set").WithDetail(key)
	}
	return nil
}

func (c *Cache[T]) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete")
	}
	return nil
}

func (c *Cache[T]) spread(ttl time.Duration) time.Duration {
	if c.jitter == 0 {
		return ttl
	}
	delta := time.Duration((rand.Float64()*2 - 1) * c.jitter * float64(ttl))
	return ttl + delta
}

//Personal.AI order the ending
