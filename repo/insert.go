package repo

import (
	"context"
	"iter"
)

// InsertQuerier 由模型构造插入语句
type InsertQuerier[M any] interface {
	InsertQuery(model M) *Query
}

// InsertFunc 把函数适配为 InsertQuerier
type InsertFunc[M any] func(model M) *Query

func (f InsertFunc[M]) InsertQuery(model M) *Query {
	return f(model)
}

// Insertable 插入能力
type Insertable[M any] interface {
	Insert(ctx context.Context, model M) error
	InsertWithExecutor(ctx context.Context, ex Executor, model M) error
	InsertMany(ctx context.Context, models iter.Seq[M]) error
	InsertBatch(ctx context.Context, size int, models iter.Seq[M]) error
}

// InsertRepository 由 InsertQuerier 派生的插入仓储
type InsertRepository[M any] struct {
	db      *DB
	querier InsertQuerier[M]
}

var _ Insertable[any] = (*InsertRepository[any])(nil)

func NewInsertRepository[M any](db *DB, querier InsertQuerier[M]) *InsertRepository[M] {
	return &InsertRepository[M]{db: db, querier: querier}
}

func (r *InsertRepository[M]) Insert(ctx context.Context, model M) error {
	return r.InsertWithExecutor(ctx, r.db, model)
}

// InsertWithExecutor 在给定的 Executor 上插入，可与任意事务策略组合
func (r *InsertRepository[M]) InsertWithExecutor(ctx context.Context, ex Executor, model M) error {
	_, err := ex.Exec(WithOperation(ctx, OpInsert), r.querier.InsertQuery(model))
	return err
}

// InsertMany 使用 DB 默认批大小分批插入
func (r *InsertRepository[M]) InsertMany(ctx context.Context, models iter.Seq[M]) error {
	return r.InsertBatch(ctx, r.db.batchSize, models)
}

// InsertBatch 每 size 个模型一个事务
func (r *InsertRepository[M]) InsertBatch(ctx context.Context, size int, models iter.Seq[M]) error {
	return NewBatchOperator[M](r.db, size).
		ExecuteQuery(WithOperation(ctx, OpInsertBatch), models, r.querier.InsertQuery)
}

// InsertInTransaction 在独立事务中插入单个模型
func (r *InsertRepository[M]) InsertInTransaction(ctx context.Context, model M) error {
	return RunInTransaction(ctx, r.db, func(ctx context.Context, tx *Tx) error {
		return r.InsertWithExecutor(ctx, tx, model)
	})
}
