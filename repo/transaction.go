package repo

import (
	"context"
	"errors"

	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

// TxFunc 在事务中执行的动作
type TxFunc[R any] func(ctx context.Context, tx *Tx) (R, error)

// WithTransaction 开启事务执行 fn，成功提交，失败回滚
//
// fn 不允许自行提交或回滚 tx，否则返回 ErrTxFinalizedByAction。
// fn 发生 panic 时先回滚再继续 panic。
func WithTransaction[R any](ctx context.Context, db *DB, fn TxFunc[R]) (R, error) {
	var zero R
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return zero, err
	}

	panicked := true
	defer func() {
		if panicked {
			_ = tx.RollbackIfNotCommitted(context.WithoutCancel(ctx))
		}
	}()

	res, err := fn(ctx, tx)
	panicked = false
	if err = finish(ctx, tx, err); err != nil {
		return zero, err
	}
	return res, nil
}

// RunInTransaction 没有返回值的 WithTransaction
func RunInTransaction(ctx context.Context, db *DB, fn func(ctx context.Context, tx *Tx) error) error {
	_, err := WithTransaction(ctx, db, func(ctx context.Context, tx *Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// TransactionSequential 在同一事务中按顺序执行动作，遇到第一个错误立即回滚返回
func TransactionSequential[R any](ctx context.Context, db *DB, actions ...TxFunc[R]) ([]R, error) {
	return WithTransaction(ctx, db, func(ctx context.Context, tx *Tx) ([]R, error) {
		results := make([]R, 0, len(actions))
		for _, action := range actions {
			res, err := action(ctx, tx)
			if err != nil {
				return nil, err
			}
			if tx.Done() {
				return nil, ferr.ErrTxFinalizedByAction
			}
			results = append(results, res)
		}
		return results, nil
	})
}

// TryTransaction 在同一事务中按顺序执行全部动作并收集所有错误
//
// 没有错误时提交并返回全部结果，否则回滚并返回 TxErrors。
func TryTransaction[R any](ctx context.Context, db *DB, actions ...TxFunc[R]) ([]R, error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return nil, ferr.TxErrors{err}
	}

	panicked := true
	defer func() {
		if panicked {
			_ = tx.RollbackIfNotCommitted(context.WithoutCancel(ctx))
		}
	}()

	results := make([]R, 0, len(actions))
	var errs ferr.TxErrors
	for _, action := range actions {
		res, err := action(ctx, tx)
		if err != nil {
			errs = append(errs, err)
		} else {
			results = append(results, res)
		}
		if tx.Done() {
			// 后续动作已无事务可用
			errs = append(errs, ferr.ErrTxFinalizedByAction)
			break
		}
	}
	panicked = false

	if len(errs) > 0 {
		if rbErr := tx.RollbackIfNotCommitted(context.WithoutCancel(ctx)); rbErr != nil {
			errs = append(errs, rbErr)
		}
		tx.log.Debug("collected action errors", logger.Int("errors", len(errs)))
		return nil, errs
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, ferr.TxErrors{err}
	}
	return results, nil
}

// finish 按 err 决定提交或回滚，回滚失败时与原错误合并返回
func finish(ctx context.Context, tx *Tx, err error) error {
	if err == nil && tx.Done() {
		err = ferr.ErrTxFinalizedByAction
	}
	if err != nil {
		if rbErr := tx.RollbackIfNotCommitted(context.WithoutCancel(ctx)); rbErr != nil {
			tx.log.Error("rollback after failure failed", logger.Err(err), logger.Any("rollback_error", rbErr))
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
