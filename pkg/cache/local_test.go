package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCacheSetGet(t *testing.T) {
	lc := NewLocalCache(1024 * 1024)

	lc.Set("k1", []byte("v1"), time.Minute)
	v, ok := lc.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	_, ok = lc.Get("missing")
	assert.False(t, ok)
}

func TestLocalCacheExpiry(t *testing.T) {
	lc := NewLocalCache(1024 * 1024)

	lc.Set("k1", []byte("v1"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := lc.Get("k1")
	assert.False(t, ok)
}

func TestLocalCacheDel(t *testing.T) {
	lc := NewLocalCache(1024 * 1024)

	lc.Set("k1", []byte("v1"), time.Minute)
	lc.Del("k1")

	_, ok := lc.Get("k1")
	assert.False(t, ok)
}
