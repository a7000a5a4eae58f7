package repo

import (
	"context"
	"iter"
)

// UpdateQuerier 由模型构造更新语句
type UpdateQuerier[M any] interface {
	UpdateQuery(model M) *Query
}

type UpdateFunc[M any] func(model M) *Query

func (f UpdateFunc[M]) UpdateQuery(model M) *Query {
	return f(model)
}

// Updatable 更新能力
type Updatable[M any] interface {
	Update(ctx context.Context, model M) error
	UpdateWithExecutor(ctx context.Context, ex Executor, model M) error
	UpdateMany(ctx context.Context, models iter.Seq[M]) error
	UpdateBatch(ctx context.Context, size int, models iter.Seq[M]) error
}

// UpdateRepository 由 UpdateQuerier 派生的更新仓储
type UpdateRepository[M any] struct {
	db      *DB
	querier UpdateQuerier[M]
}

var _ Updatable[any] = (*UpdateRepository[any])(nil)

func NewUpdateRepository[M any](db *DB, querier UpdateQuerier[M]) *UpdateRepository[M] {
	return &UpdateRepository[M]{db: db, querier: querier}
}

func (r *UpdateRepository[M]) Update(ctx context.Context, model M) error {
	return r.UpdateWithExecutor(ctx, r.db, model)
}

func (r *UpdateRepository[M]) UpdateWithExecutor(ctx context.Context, ex Executor, model M) error {
	_, err := ex.Exec(WithOperation(ctx, OpUpdate), r.querier.UpdateQuery(model))
	return err
}

func (r *UpdateRepository[M]) UpdateMany(ctx context.Context, models iter.Seq[M]) error {
	return r.UpdateBatch(ctx, r.db.batchSize, models)
}

// UpdateBatch 每 size 个模型一个事务
func (r *UpdateRepository[M]) UpdateBatch(ctx context.Context, size int, models iter.Seq[M]) error {
	return NewBatchOperator[M](r.db, size).
		ExecuteQuery(WithOperation(ctx, OpUpdateBatch), models, r.querier.UpdateQuery)
}

// UpdateInTransaction 在独立事务中更新单个模型
func (r *UpdateRepository[M]) UpdateInTransaction(ctx context.Context, model M) error {
	return RunInTransaction(ctx, r.db, func(ctx context.Context, tx *Tx) error {
		return r.UpdateWithExecutor(ctx, tx, model)
	})
}
