package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
	"golang.org/x/sync/errgroup"
)

// SharedTxFunc 并发事务中的动作，结束前必须调用 ref.Release
type SharedTxFunc[R any] func(ctx context.Context, ref *TxRef) (R, error)

// sharedTx 由互斥锁保护、引用计数的事务句柄
type sharedTx struct {
	mu   sync.Mutex
	tx   *Tx
	refs atomic.Int64
}

func (s *sharedTx) acquire() *TxRef {
	s.refs.Add(1)
	return &TxRef{shared: s}
}

// TxRef 共享事务的引用
//
// Exec 和 Query 只在发出语句期间持有锁，Query 返回的结果集在 Close 之前一直持有锁。
// 持有锁时等待其他动作会造成死锁，引擎无法检测。
type TxRef struct {
	shared   *sharedTx
	released atomic.Bool
}

func (r *TxRef) Exec(ctx context.Context, q *Query) (Result, error) {
	if r.released.Load() {
		return Result{}, ferr.ErrTxRefReleased
	}
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return r.shared.tx.Exec(ctx, q)
}

func (r *TxRef) Query(ctx context.Context, q *Query) (Rows, error) {
	if r.released.Load() {
		return nil, ferr.ErrTxRefReleased
	}
	r.shared.mu.Lock()
	rows, err := r.shared.tx.Query(ctx, q)
	if err != nil {
		r.shared.mu.Unlock()
		return nil, err
	}
	return &lockedRows{Rows: rows, unlock: sync.OnceFunc(r.shared.mu.Unlock)}, nil
}

// Lock 独占事务执行多条语句，用完必须调用 unlock
func (r *TxRef) Lock() (tx *Tx, unlock func(), err error) {
	if r.released.Load() {
		return nil, nil, ferr.ErrTxRefReleased
	}
	r.shared.mu.Lock()
	return r.shared.tx, sync.OnceFunc(r.shared.mu.Unlock), nil
}

// Release 归还引用，重复调用无副作用
func (r *TxRef) Release() {
	if r.released.CompareAndSwap(false, true) {
		r.shared.refs.Add(-1)
	}
}

// lockedRows 关闭时释放共享事务的锁
type lockedRows struct {
	Rows
	unlock func()
}

func (r *lockedRows) Close() error {
	err := r.Rows.Close()
	r.unlock()
	return err
}

// TransactionConcurrent 在同一事务上并发执行动作
//
// 全部动作成功时提交，否则回滚。结束时若仍有未释放的引用，回滚并返回
// ErrSharedTxOutstanding；若锁仍被占用，返回 ErrLockAcquisition，
// 并在锁释放后于后台回滚。结果按动作顺序返回。
func TransactionConcurrent[R any](ctx context.Context, db *DB, actions ...SharedTxFunc[R]) ([]R, error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	shared := &sharedTx{tx: tx}

	results := make([]R, len(actions))
	errs := make([]error, len(actions))
	var g errgroup.Group
	for i, action := range actions {
		ref := shared.acquire()
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					errs[i] = ferr.ErrActionPanicked(p)
				}
			}()
			res, err := action(ctx, ref)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := shared.finalize(ctx, errors.Join(errs...)); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *sharedTx) finalize(ctx context.Context, actionErr error) error {
	if !s.mu.TryLock() {
		s.tx.log.Error("shared transaction still locked at finalize, deferring rollback")
		go func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if err := s.tx.RollbackIfNotCommitted(context.WithoutCancel(ctx)); err != nil {
				s.tx.log.Error("deferred rollback failed", logger.Err(err))
			}
		}()
		return errors.Join(actionErr, ferr.ErrLockAcquisition)
	}
	defer s.mu.Unlock()

	if n := s.refs.Load(); n > 0 {
		s.tx.log.Error("shared transaction references outstanding", logger.Int64("refs", n))
		outstanding := fmt.Errorf("%w: %d reference(s)", ferr.ErrSharedTxOutstanding, n)
		rbErr := s.tx.RollbackIfNotCommitted(context.WithoutCancel(ctx))
		return errors.Join(actionErr, outstanding, rbErr)
	}
	return finish(ctx, s.tx, actionErr)
}
