package repo

import (
	"context"
	"iter"

	"github.com/Masterminds/squirrel"
	"github.com/fyerfyer/fyer-repo/repo/filter"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

// DeleteQuerier 由标识构造删除语句
type DeleteQuerier[ID any] interface {
	DeleteByIDQuery(id ID) *Query
}

// FilterDeleteQuerier 自定义按条件删除的语句，未实现时使用 TableNamer 生成
type FilterDeleteQuerier interface {
	DeleteByFilterQuery(f Filter) *Query
}

// Deletable 删除能力
type Deletable[ID any] interface {
	DeleteByID(ctx context.Context, id ID) error
	DeleteByIDWithExecutor(ctx context.Context, ex Executor, id ID) error
	DeleteManyByID(ctx context.Context, ids iter.Seq[ID]) error
	DeleteBatchByID(ctx context.Context, size int, ids iter.Seq[ID]) error
	DeleteByFilter(ctx context.Context, f Filter) error
	DeleteByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) error
}

type DeleteRepository[ID any] struct {
	db      *DB
	querier DeleteQuerier[ID]
}

var _ Deletable[int64] = (*DeleteRepository[int64])(nil)

func NewDeleteRepository[ID any](db *DB, querier DeleteQuerier[ID]) *DeleteRepository[ID] {
	return &DeleteRepository[ID]{db: db, querier: querier}
}

func (r *DeleteRepository[ID]) DeleteByID(ctx context.Context, id ID) error {
	return r.DeleteByIDWithExecutor(ctx, r.db, id)
}

func (r *DeleteRepository[ID]) DeleteByIDWithExecutor(ctx context.Context, ex Executor, id ID) error {
	_, err := ex.Exec(WithOperation(ctx, OpDeleteByID), r.querier.DeleteByIDQuery(id))
	return err
}

func (r *DeleteRepository[ID]) DeleteManyByID(ctx context.Context, ids iter.Seq[ID]) error {
	return r.DeleteBatchByID(ctx, r.db.batchSize, ids)
}

func (r *DeleteRepository[ID]) DeleteBatchByID(ctx context.Context, size int, ids iter.Seq[ID]) error {
	return NewBatchOperator[ID](r.db, size).
		ExecuteQuery(WithOperation(ctx, OpDeleteBatchByID), ids, r.querier.DeleteByIDQuery)
}

// DeleteByFilter 按条件批量删除，不生效的条件直接拒绝，不会发出任何语句
func (r *DeleteRepository[ID]) DeleteByFilter(ctx context.Context, f Filter) error {
	return r.DeleteByFilterWithExecutor(ctx, r.db, f)
}

func (r *DeleteRepository[ID]) DeleteByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) error {
	q, err := r.filterQuery(f)
	if err != nil {
		return err
	}
	_, err = ex.Exec(WithOperation(ctx, OpDeleteByFilter), q)
	return err
}

// DeleteByValues 删除 column 取值在 values 中的记录，values 为空时拒绝
func (r *DeleteRepository[ID]) DeleteByValues(ctx context.Context, column string, values ...any) error {
	return r.DeleteByFilter(ctx, filter.In(column, values...))
}

func (r *DeleteRepository[ID]) DeleteByIDInTransaction(ctx context.Context, id ID) error {
	return RunInTransaction(ctx, r.db, func(ctx context.Context, tx *Tx) error {
		return r.DeleteByIDWithExecutor(ctx, tx, id)
	})
}

func (r *DeleteRepository[ID]) DeleteByFilterInTransaction(ctx context.Context, f Filter) error {
	// 拒绝要先于开启事务
	if _, err := r.filterQuery(f); err != nil {
		return err
	}
	return RunInTransaction(ctx, r.db, func(ctx context.Context, tx *Tx) error {
		return r.DeleteByFilterWithExecutor(ctx, tx, f)
	})
}

func (r *DeleteRepository[ID]) DeleteByValuesInTransaction(ctx context.Context, column string, values ...any) error {
	return r.DeleteByFilterInTransaction(ctx, filter.In(column, values...))
}

func (r *DeleteRepository[ID]) filterQuery(f Filter) (*Query, error) {
	if f == nil || !f.ShouldApply() {
		return nil, ferr.ErrFilterRejected
	}
	switch q := r.querier.(type) {
	case FilterDeleteQuerier:
		return q.DeleteByFilterQuery(f), nil
	case TableNamer:
		return FromSqlizer(squirrel.Delete(q.TableName()).Where(f).PlaceholderFormat(r.db.placeholder)), nil
	default:
		return nil, ferr.ErrUnsupportedOperation
	}
}
