package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 进程内缓存
type MemoryCache struct {
	c *gocache.Cache
}

var _ Cache = (*MemoryCache)(nil)

// NewMemory 创建内存缓存，cleanup 为过期清理间隔
func NewMemory(defaultTTL, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(defaultTTL, cleanup)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheKeyEmpty
	}
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v.([]byte), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, val, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

// Flush 清空全部缓存
func (m *MemoryCache) Flush() {
	m.c.Flush()
}
