package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo"
)

const defaultTTL = 5 * time.Minute

// Getter CachedSelectable 包装的查询能力，repo.SelectRepository 满足
type Getter[M any, ID any] interface {
	GetByID(ctx context.Context, id ID) (*M, error)
	GetByFilter(ctx context.Context, f repo.Filter) ([]M, error)
}

// CachedSelectable 读穿透缓存，写操作之后需要调用 Invalidate
type CachedSelectable[M any, ID any] struct {
	inner  Getter[M, ID]
	cache  Cache
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

type Option func(*config)

type config struct {
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

// WithPrefix 设置键前缀，通常为表名
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

func NewSelectable[M any, ID any](inner Getter[M, ID], c Cache, opts ...Option) *CachedSelectable[M, ID] {
	cfg := &config{prefix: "repo", ttl: defaultTTL, log: logger.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &CachedSelectable[M, ID]{inner: inner, cache: c, prefix: cfg.prefix, ttl: cfg.ttl, log: cfg.log}
}

// GetByID 未命中时查询并回填，记录不存在时不缓存
func (s *CachedSelectable[M, ID]) GetByID(ctx context.Context, id ID) (*M, error) {
	key := s.idKey(id)
	var m M
	if s.load(ctx, key, &m) {
		return &m, nil
	}

	res, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, res)
	return res, nil
}

// GetByFilter 以条件语句的哈希为键
func (s *CachedSelectable[M, ID]) GetByFilter(ctx context.Context, f repo.Filter) ([]M, error) {
	key, err := s.FilterKey(f)
	if err != nil {
		return nil, err
	}
	var ms []M
	if s.load(ctx, key, &ms) {
		return ms, nil
	}

	res, err := s.inner.GetByFilter(ctx, f)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, res)
	return res, nil
}

// Invalidate 删除 id 对应的缓存
func (s *CachedSelectable[M, ID]) Invalidate(ctx context.Context, ids ...ID) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.idKey(id)
	}
	return s.cache.Delete(ctx, keys...)
}

// InvalidateFilter 删除条件查询的缓存
func (s *CachedSelectable[M, ID]) InvalidateFilter(ctx context.Context, f repo.Filter) error {
	key, err := s.FilterKey(f)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, key)
}

func (s *CachedSelectable[M, ID]) idKey(id ID) string {
	return fmt.Sprintf("%s:id:%v", s.prefix, id)
}

// FilterKey 不生效的条件共用同一个键
func (s *CachedSelectable[M, ID]) FilterKey(f repo.Filter) (string, error) {
	if f == nil || !f.ShouldApply() {
		return s.prefix + ":filter:all", nil
	}
	sql, args, err := f.ToSql()
	if err != nil {
		return "", err
	}
	h := xxhash.New()
	_, _ = h.WriteString(sql)
	for _, a := range args {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(fmt.Sprintf("%T:%v", a, a))
	}
	return s.prefix + ":filter:" + strconv.FormatUint(h.Sum64(), 16), nil
}

func (s *CachedSelectable[M, ID]) load(ctx context.Context, key string, dst any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cache get failed", logger.String("key", key), logger.Err(err))
		}
		return false
	}
	if err = json.Unmarshal(data, dst); err != nil {
		s.log.Warn("cache entry corrupted", logger.String("key", key), logger.Err(err))
		return false
	}
	return true
}

func (s *CachedSelectable[M, ID]) store(ctx context.Context, key string, val any) {
	data, err := json.Marshal(val)
	if err != nil {
		s.log.Warn("cache encode failed", logger.String("key", key), logger.Err(err))
		return
	}
	if err = s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn("cache set failed", logger.String("key", key), logger.Err(err))
	}
}
