package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICache defines the shared cache interface (abstract).
type ICache interface {
	// Get returns the cached value
	Get(ctx context.Context, key string) *redis.StringCmd
	// Set stores a value with expiration
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	// Del removes keys
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	// Exists reports key presence
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	// Expire sets a key TTL
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	// TTL returns the remaining TTL
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisCache implements ICache over a redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates an ICache backed by redis.
func NewRedisCache(client *redis.Client) ICache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) *redis.StringCmd {
	return r.client.Get(ctx, key)
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	return r.client.Set(ctx, key, value, expiration)
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return r.client.Del(ctx, keys...)
}

func (r *RedisCache) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	return r.client.Exists(ctx, keys...)
}

func (r *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return r.client.Expire(ctx, key, expiration)
}

func (r *RedisCache) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return r.client.TTL(ctx, key)
}
