package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"github.com/fyerfyer/fyer-kit/pool"
)

const shutdownTimeout = 10 * time.Second

// PoolConfig 事务池配置，MaxActive 即同时打开的事务上限
type PoolConfig struct {
	MaxIdle     int
	MaxActive   int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	InitialSize int
	WaitTimeout time.Duration
	DialTimeout time.Duration
}

// DefaultPoolConfig 返回默认的事务池配置
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdle:     10,
		MaxActive:   100,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
		WaitTimeout: 3 * time.Second,
		DialTimeout: 2 * time.Second,
	}
}

// WithConnPool 限制同时打开的事务数量，分块并发写入时避免耗尽数据库连接
func WithConnPool(cfg *PoolConfig) Option {
	return func(s *Store) error {
		if cfg == nil {
			cfg = DefaultPoolConfig()
		}
		s.txPool = pool.NewPool(&leaseFactory{db: s.db},
			pool.WithMaxIdle(cfg.MaxIdle),
			pool.WithMaxActive(cfg.MaxActive),
			pool.WithMaxIdleTime(cfg.MaxIdleTime),
			pool.WithMaxLifetime(cfg.MaxLifetime),
			pool.WithWaitTimeout(cfg.WaitTimeout),
			pool.WithDialTimeout(cfg.DialTimeout),
			pool.WithInitialSize(cfg.InitialSize),
		)
		return nil
	}
}

// WithExistingPool 使用外部创建的池作为事务名额
func WithExistingPool(p pool.Pool) Option {
	return func(s *Store) error {
		s.txPool = p
		return nil
	}
}

// PoolStats 事务池统计，未启用时为零值
func (s *Store) PoolStats() pool.Stats {
	if s.txPool == nil {
		return pool.Stats{}
	}
	return s.txPool.Stats()
}

// lease 事务池中的一个名额
type lease struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

func (l *lease) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *lease) Raw() interface{} {
	return l.db
}

func (l *lease) IsAlive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	return l.db.PingContext(ctx) == nil
}

func (l *lease) ResetState() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = false
	return nil
}

type leaseFactory struct {
	db *sql.DB
}

func (f *leaseFactory) Create(ctx context.Context) (pool.Connection, error) {
	if err := f.db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &lease{db: f.db}, nil
}

// brokenConn 只有连接损坏时才让池丢弃名额
func brokenConn(err error) error {
	if errors.Is(err, driver.ErrBadConn) {
		return err
	}
	return nil
}
