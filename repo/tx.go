package repo

import (
	"context"
	"errors"
	"sync"

	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

// TxState 事务状态
type TxState int32

const (
	TxOpen TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxOpen:
		return "open"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Tx 事务句柄，Committed 和 RolledBack 都是终态
type Tx struct {
	db   *DB
	conn TxConn
	id   string
	log  logger.Logger

	mu    sync.Mutex
	state TxState
}

// ID 事务ID，用于日志和链路关联
func (t *Tx) ID() string {
	return t.id
}

// State 当前状态
func (t *Tx) State() TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done 是否已进入终态
func (t *Tx) Done() bool {
	return t.State() != TxOpen
}

func (t *Tx) Exec(ctx context.Context, q *Query) (Result, error) {
	if t.Done() {
		return Result{}, ferr.ErrTxDone
	}
	res, err := t.db.run(ctx, QueryTypeExec, q, t.conn, t.id)
	if err != nil {
		return Result{}, err
	}
	return res.Result, nil
}

func (t *Tx) Query(ctx context.Context, q *Query) (Rows, error) {
	if t.Done() {
		return nil, ferr.ErrTxDone
	}
	res, err := t.db.run(ctx, QueryTypeQuery, q, t.conn, t.id)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Commit 提交事务，驱动提交失败时事务同样进入终态
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TxOpen {
		return ferr.ErrTxDone
	}

	if err := t.conn.Commit(ctx); err != nil {
		t.state = TxRolledBack
		t.log.Error("commit failed", logger.Err(err))
		return ferr.NewStoreError("commit", err)
	}
	t.state = TxCommitted
	t.log.Debug("transaction committed")
	return nil
}

// Rollback 回滚事务
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TxOpen {
		return ferr.ErrTxDone
	}

	t.state = TxRolledBack
	if err := t.conn.Rollback(ctx); err != nil {
		t.log.Error("rollback failed", logger.Err(err))
		return ferr.NewStoreError("rollback", err)
	}
	t.log.Debug("transaction rolled back")
	return nil
}

// RollbackIfNotCommitted 事务已结束时什么都不做
func (t *Tx) RollbackIfNotCommitted(ctx context.Context) error {
	if t.Done() {
		return nil
	}
	err := t.Rollback(ctx)
	if errors.Is(err, ferr.ErrTxDone) {
		return nil
	}
	return err
}
