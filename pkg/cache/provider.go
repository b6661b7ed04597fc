package cache

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is the Wire provider set for the cache package.
var ProviderSet = wire.NewSet(ProvideRedis, ProvideICache, ProvideLocalCache)

const defaultLocalCacheBytes = 32 << 20

// ProvideRedis provides the redis client.
func ProvideRedis(conf Redis) (*redis.Client, error) {
	return NewRedis(conf)
}

// ProvideICache provides the ICache implementation.
func ProvideICache(client *redis.Client) ICache {
	return NewRedisCache(client)
}

// ProvideLocalCache provides the in-process cache.
func ProvideLocalCache() *LocalCache {
	return NewLocalCache(defaultLocalCacheBytes)
}
