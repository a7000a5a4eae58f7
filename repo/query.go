package repo

import (
	"sync/atomic"

	"github.com/Masterminds/squirrel"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

// Query 绑定了参数的单次语句，执行一次后即被消费
type Query struct {
	SQL  string
	Args []any

	err  error
	used atomic.Bool
}

// NewQuery 使用原始 SQL 和参数创建语句
func NewQuery(sql string, args ...any) *Query {
	return &Query{SQL: sql, Args: args}
}

// FromSqlizer 由 squirrel 构造器生成语句，构造错误推迟到执行时返回
func FromSqlizer(s squirrel.Sqlizer) *Query {
	sql, args, err := s.ToSql()
	return &Query{SQL: sql, Args: args, err: err}
}

// Err 返回构造阶段的错误
func (q *Query) Err() error {
	return q.err
}

// Consumed 是否已经执行过
func (q *Query) Consumed() bool {
	return q.used.Load()
}

func (q *Query) consume() error {
	if q == nil {
		return ferr.ErrNilQuery
	}
	if q.err != nil {
		return q.err
	}
	if !q.used.CompareAndSwap(false, true) {
		return ferr.ErrQueryConsumed
	}
	return nil
}
