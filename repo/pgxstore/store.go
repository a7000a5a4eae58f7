// Package pgxstore 基于 pgx 连接池的 Store 实现，配合 squirrel.Dollar 占位符使用
package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/fyer-repo/repo"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Pool pgxpool.Pool 和 pgxmock 都满足的最小接口
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store 把 pgx 连接池适配为 repo.Store
type Store struct {
	pool   Pool
	txOpts pgx.TxOptions
}

var _ repo.Store = (*Store)(nil)

type Option func(*Store)

// WithTxOptions 设置事务隔离级别和访问模式
func WithTxOptions(opts pgx.TxOptions) Option {
	return func(s *Store) {
		s.txOpts = opts
	}
}

func New(pool Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (repo.Result, error) {
	return execOn(ctx, s.pool, query, args)
}

func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (repo.Rows, error) {
	return queryOn(ctx, s.pool, query, args)
}

func (s *Store) BeginTx(ctx context.Context) (repo.TxConn, error) {
	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		return nil, classify(err)
	}
	return &txConn{tx: tx}, nil
}

// Close 池实现了 Close 时关闭它
func (s *Store) Close() error {
	if c, ok := s.pool.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

type txConn struct {
	tx pgx.Tx
}

func (t *txConn) ExecContext(ctx context.Context, query string, args ...any) (repo.Result, error) {
	return execOn(ctx, t.tx, query, args)
}

func (t *txConn) QueryContext(ctx context.Context, query string, args ...any) (repo.Rows, error) {
	return queryOn(ctx, t.tx, query, args)
}

func (t *txConn) Commit(ctx context.Context) error {
	return classify(t.tx.Commit(ctx))
}

func (t *txConn) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func execOn(ctx context.Context, q querier, sql string, args []any) (repo.Result, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return repo.Result{}, classify(err)
	}
	return repo.NewRowsAffectedResult(tag.RowsAffected()), nil
}

func queryOn(ctx context.Context, q querier, sql string, args []any) (repo.Rows, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	return pgxscan.NewRowsAdapter(rows), nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", repo.ErrUniqueViolation, err)
	}
	return err
}
