package repo

import (
	"context"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Saveable 按标识在插入和更新之间路由
type Saveable[M any] interface {
	Save(ctx context.Context, model M) error
	SaveWithExecutor(ctx context.Context, ex Executor, model M) error
	SaveAll(ctx context.Context, models iter.Seq[M]) error
	SaveBatch(ctx context.Context, size int, models iter.Seq[M]) error
}

// SaveRepository 仅依赖 Insertable 和 Updatable 实现保存
type SaveRepository[M Model[ID], ID any] struct {
	db       *DB
	inserter Insertable[M]
	updater  Updatable[M]
}

func NewSaveRepository[M Model[ID], ID any](db *DB, inserter Insertable[M], updater Updatable[M]) *SaveRepository[M, ID] {
	return &SaveRepository[M, ID]{db: db, inserter: inserter, updater: updater}
}

// Save 没有标识时插入，否则更新
func (s *SaveRepository[M, ID]) Save(ctx context.Context, model M) error {
	return s.SaveWithExecutor(ctx, s.db, model)
}

func (s *SaveRepository[M, ID]) SaveWithExecutor(ctx context.Context, ex Executor, model M) error {
	if HasID[ID](model) {
		return s.updater.UpdateWithExecutor(ctx, ex, model)
	}
	return s.inserter.InsertWithExecutor(ctx, ex, model)
}

func (s *SaveRepository[M, ID]) SaveAll(ctx context.Context, models iter.Seq[M]) error {
	return s.SaveBatch(ctx, s.db.batchSize, models)
}

// SaveBatch 把全部输入拆成待插入和待更新两组，两组都非空时并发执行
//
// 拆分前会读完整个输入并保存在内存中，两组各自再按 size 分块。
// 输入量很大时由调用方先切分再调用。
func (s *SaveRepository[M, ID]) SaveBatch(ctx context.Context, size int, models iter.Seq[M]) error {
	var inserts, updates []M
	for m := range models {
		if HasID[ID](m) {
			updates = append(updates, m)
		} else {
			inserts = append(inserts, m)
		}
	}

	switch {
	case len(inserts) > 0 && len(updates) > 0:
		var g errgroup.Group
		g.Go(func() error {
			return s.inserter.InsertBatch(ctx, size, slices.Values(inserts))
		})
		g.Go(func() error {
			return s.updater.UpdateBatch(ctx, size, slices.Values(updates))
		})
		return g.Wait()
	case len(inserts) > 0:
		return s.inserter.InsertBatch(ctx, size, slices.Values(inserts))
	case len(updates) > 0:
		return s.updater.UpdateBatch(ctx, size, slices.Values(updates))
	default:
		return nil
	}
}

func (s *SaveRepository[M, ID]) SaveInTransaction(ctx context.Context, model M) error {
	return RunInTransaction(ctx, s.db, func(ctx context.Context, tx *Tx) error {
		return s.SaveWithExecutor(ctx, tx, model)
	})
}
