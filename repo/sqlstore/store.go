// Package sqlstore 基于 database/sql 的 Store 实现
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/fyerfyer/fyer-kit/pool"
	"github.com/fyerfyer/fyer-repo/repo"
)

// Store 把 *sql.DB 适配为 repo.Store
type Store struct {
	db     *sql.DB
	txOpts *sql.TxOptions
	// txPool 不为空时每个事务需要先租用一个名额
	txPool pool.Pool
}

var _ repo.Store = (*Store)(nil)

// Option 定义配置项
type Option func(*Store) error

// WithTxOptions 设置开启事务时的隔离级别等选项
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(s *Store) error {
		s.txOpts = opts
		return nil
	}
}

// New 创建 Store
func New(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, repo.ErrNilStore
	}
	s := &Store{db: db}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DB 返回底层连接池
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (repo.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return repo.Result{}, classify(err)
	}
	return toResult(res)
}

func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (repo.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// BeginTx 开启事务，启用事务池时在名额耗尽后等待
func (s *Store) BeginTx(ctx context.Context) (repo.TxConn, error) {
	release := func(error) {}
	if s.txPool != nil {
		conn, err := s.txPool.Get(ctx)
		if err != nil {
			return nil, err
		}
		release = func(err error) {
			s.txPool.Put(conn, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, s.txOpts)
	if err != nil {
		release(err)
		return nil, classify(err)
	}
	return &txConn{tx: tx, put: release}, nil
}

// Close 先关闭事务池再关闭连接池
func (s *Store) Close() error {
	var poolErr error
	if s.txPool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		poolErr = s.txPool.Shutdown(ctx)
	}
	return errors.Join(poolErr, s.db.Close())
}

type txConn struct {
	tx   *sql.Tx
	once sync.Once
	put  func(error)
}

func (t *txConn) ExecContext(ctx context.Context, query string, args ...any) (repo.Result, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return repo.Result{}, classify(err)
	}
	return toResult(res)
}

func (t *txConn) QueryContext(ctx context.Context, query string, args ...any) (repo.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (t *txConn) Commit(context.Context) error {
	err := t.tx.Commit()
	t.done(err)
	return classify(err)
}

func (t *txConn) Rollback(context.Context) error {
	err := t.tx.Rollback()
	t.done(err)
	return err
}

// done 归还事务池名额，只在第一次调用时生效
func (t *txConn) done(err error) {
	t.once.Do(func() {
		t.put(brokenConn(err))
	})
}

func toResult(res sql.Result) (repo.Result, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return repo.Result{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return repo.NewRowsAffectedResult(affected), nil
	}
	return repo.NewResult(id, affected), nil
}
