package repo

import (
	"context"

	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
	"github.com/georgysavva/scany/v2/dbscan"
)

// Rows 驱动返回的结果集
type Rows = dbscan.Rows

// Result 写语句的执行结果
type Result struct {
	lastInsertID int64
	rowsAffected int64
	idErr        error
}

// NewResult 创建同时带有自增ID和影响行数的结果
func NewResult(lastInsertID, rowsAffected int64) Result {
	return Result{lastInsertID: lastInsertID, rowsAffected: rowsAffected}
}

// NewRowsAffectedResult 创建不支持自增ID的结果
func NewRowsAffectedResult(rowsAffected int64) Result {
	return Result{rowsAffected: rowsAffected, idErr: ferr.ErrUnsupportedOperation}
}

func (r Result) LastInsertId() (int64, error) {
	return r.lastInsertID, r.idErr
}

func (r Result) RowsAffected() int64 {
	return r.rowsAffected
}

// Executor 能把一条 Query 执行完毕的对象，连接池和事务都满足
type Executor interface {
	Exec(ctx context.Context, q *Query) (Result, error)
	Query(ctx context.Context, q *Query) (Rows, error)
}

// Conn 驱动层的语句执行
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// Store 驱动层连接池
type Store interface {
	Conn
	BeginTx(ctx context.Context) (TxConn, error)
}

// TxConn 驱动层事务，独占一条连接
type TxConn interface {
	Conn
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
