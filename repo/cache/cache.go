// Package cache 为查询能力提供读穿透缓存
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss 缓存中没有对应的键
	ErrCacheMiss = errors.New("cache: cache miss")
	// ErrCacheKeyEmpty 缓存键为空
	ErrCacheKeyEmpty = errors.New("cache: cache key is empty")
)

// Cache 字节缓存接口
type Cache interface {
	// Get 不存在时返回 ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
