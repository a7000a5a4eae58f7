package repo

import (
	"context"
	"iter"

	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
	"golang.org/x/sync/errgroup"
)

// BatchWorker 处理一个分块，自行管理事务
type BatchWorker[T any] func(ctx context.Context, batch []T) error

// BatchOperator 把输入按固定大小分块执行
type BatchOperator[T any] struct {
	db   *DB
	size int
}

// NewBatchOperator 创建分块执行器
func NewBatchOperator[T any](db *DB, size int) *BatchOperator[T] {
	return &BatchOperator[T]{db: db, size: size}
}

// chunker 缓冲区，满 size 个元素时交给 emit
type chunker[T any] struct {
	size int
	buf  []T
	emit func(batch []T) error
}

func newChunker[T any](size int, emit func([]T) error) *chunker[T] {
	return &chunker[T]{size: size, buf: make([]T, 0, size), emit: emit}
}

func (c *chunker[T]) push(item T) error {
	c.buf = append(c.buf, item)
	if len(c.buf) < c.size {
		return nil
	}
	return c.flush()
}

func (c *chunker[T]) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	batch := c.buf
	c.buf = make([]T, 0, c.size)
	return c.emit(batch)
}

// ExecuteQuery 每个分块一个事务，块内逐条顺序执行 query
//
// 某个分块失败时只回滚该分块并立即返回，之前提交的分块保持提交，
// 后续输入不会再被读取。
func (b *BatchOperator[T]) ExecuteQuery(ctx context.Context, items iter.Seq[T], query func(T) *Query) error {
	if b.size <= 0 {
		return ferr.ErrInvalidBatchSize(b.size)
	}

	index := 0
	c := newChunker(b.size, func(batch []T) error {
		i := index
		index++
		err := RunInTransaction(ctx, b.db, func(ctx context.Context, tx *Tx) error {
			for _, item := range batch {
				if _, err := tx.Exec(ctx, query(item)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.db.logger.Warn("batch rolled back",
				logger.String("operation", OperationFrom(ctx)), logger.Int("batch", i), logger.Int("size", len(batch)), logger.Err(err))
			return err
		}
		b.db.logger.Debug("batch committed",
			logger.String("operation", OperationFrom(ctx)), logger.Int("batch", i), logger.Int("size", len(batch)))
		return nil
	})

	return feed(items, c.push, c.flush)
}

// ExecuteBatch 每个分块交给 worker，所有分块并发执行
//
// 返回最先失败的分块错误。出现失败后不再读取输入，也不再启动新的分块，
// 已在执行的分块不会被取消，已提交的分块也不会被撤销。
func (b *BatchOperator[T]) ExecuteBatch(ctx context.Context, items iter.Seq[T], worker BatchWorker[T]) error {
	if b.size <= 0 {
		return ferr.ErrInvalidBatchSize(b.size)
	}

	g, gctx := b.group(ctx)
	c := newChunker(b.size, b.dispatcher(ctx, gctx, g, worker))
	err := feed(items, c.push, c.flush)
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

// PartitionExecute 按 pred 把输入拆成两个不相交的子序列，分别分块交给各自的 worker 并发执行
func (b *BatchOperator[T]) PartitionExecute(ctx context.Context, items iter.Seq[T], pred func(T) bool,
	matched, unmatched BatchWorker[T]) error {
	if b.size <= 0 {
		return ferr.ErrInvalidBatchSize(b.size)
	}

	g, gctx := b.group(ctx)
	left := newChunker(b.size, b.dispatcher(ctx, gctx, g, matched))
	right := newChunker(b.size, b.dispatcher(ctx, gctx, g, unmatched))
	err := feed(items, func(item T) error {
		if pred(item) {
			return left.push(item)
		}
		return right.push(item)
	}, left.flush, right.flush)
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

// feed 逐个读取输入，push 或 flush 出错时立即停止
func feed[T any](items iter.Seq[T], push func(T) error, flushes ...func() error) error {
	for item := range items {
		if err := push(item); err != nil {
			return err
		}
	}
	for _, flush := range flushes {
		if err := flush(); err != nil {
			return err
		}
	}
	return nil
}

func (b *BatchOperator[T]) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	if b.db.maxConcurrentBatches > 0 {
		g.SetLimit(b.db.maxConcurrentBatches)
	}
	return g, gctx
}

// dispatcher 返回把分块投递到 g 的 emit 函数
//
// gctx 在第一个分块失败或调用方取消时结束，之后的分块不再投递，
// 已投递但尚未开始的分块直接跳过。worker 使用调用方的 ctx。
func (b *BatchOperator[T]) dispatcher(ctx, gctx context.Context, g *errgroup.Group, worker BatchWorker[T]) func([]T) error {
	index := 0
	return func(batch []T) error {
		if gctx.Err() != nil {
			return context.Cause(gctx)
		}
		i := index
		index++
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				b.db.logger.Debug("batch skipped",
					logger.String("operation", OperationFrom(ctx)), logger.Int("batch", i), logger.Int("size", len(batch)))
				return context.Cause(gctx)
			}
			defer func() {
				if p := recover(); p != nil {
					err = ferr.ErrActionPanicked(p)
				}
				if err != nil {
					b.db.logger.Error("batch worker failed",
						logger.String("operation", OperationFrom(ctx)), logger.Int("batch", i), logger.Int("size", len(batch)), logger.Err(err))
				}
			}()
			return worker(ctx, batch)
		})
		return nil
	}
}
