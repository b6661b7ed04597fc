package cache

import (
	"encoding/binary"
	"time"

	"github.com/VictoriaMetrics/fastcache"
)

// LocalCache is a process-wide, capacity-bounded cache built on fastcache,
// with per-entry TTL. Entries are keyed by immutable tuples, so stale reads
// are impossible as long as the key embeds the relevant version counters.
type LocalCache struct {
	cache *fastcache.Cache
}

// NewLocalCache creates a LocalCache with the given capacity in bytes.
// Capacity below fastcache's 32MB floor is rounded up by fastcache itself.
func NewLocalCache(maxBytes int) *LocalCache {
	if maxBytes <= 0 {
		maxBytes = 16 * 1024 * 1024
	}
	return &LocalCache{cache: fastcache.New(maxBytes)}
}

// Set stores value under key with a TTL. The expiry is encoded in the entry
// so eviction needs no background sweeper.
func (lc *LocalCache) Set(key string, value []byte, ttl time.Duration) {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().Add(ttl).UnixNano()))
	copy(buf[8:], value)
	lc.cache.Set([]byte(key), buf)
}

// Get returns the value for key, or ok=false when missing or expired.
func (lc *LocalCache) Get(key string) ([]byte, bool) {
	buf := lc.cache.Get(nil, []byte(key))
	if len(buf) < 8 {
		return nil, false
	}
	expireAt := int64(binary.BigEndian.Uint64(buf[:8]))
	if time.Now().UnixNano() > expireAt {
		lc.cache.Del([]byte(key))
		return nil, false
	}
	return buf[8:], true
}

// Del removes a key.
func (lc *LocalCache) Del(key string) {
	lc.cache.Del([]byte(key))
}

// Reset drops all entries.
func (lc *LocalCache) Reset() {
	lc.cache.Reset()
}
