package repo

import (
	"context"
	"fmt"

	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

const (
	QueryTypeExec  = "exec"
	QueryTypeQuery = "query"
)

// Handler 处理器接口定义
type Handler interface {
	QueryHandler(ctx context.Context, qc *QueryContext) (*QueryResult, error)
}

// HandlerFunc 用于将函数转换为 Handler 接口
type HandlerFunc func(ctx context.Context, qc *QueryContext) (*QueryResult, error)

func (h HandlerFunc) QueryHandler(ctx context.Context, qc *QueryContext) (*QueryResult, error) {
	return h(ctx, qc)
}

// Middleware 中间件定义
type Middleware func(Handler) Handler

// QueryContext 查询上下文定义
type QueryContext struct {
	QueryType string
	Query     *Query
	// Operation 发起语句的仓储操作，例如 insert_batch
	Operation string
	// TxID 在事务中执行时为事务ID，否则为空
	TxID string

	conn Conn
}

// InTx 语句是否在事务中执行
func (qc *QueryContext) InTx() bool {
	return qc.TxID != ""
}

// QueryResult 查询结果定义
type QueryResult struct {
	Result Result
	Rows   Rows
}

// BuildChain 构建处理器调用链
func BuildChain(core Handler, ms []Middleware) Handler {
	h := core
	// 从后往前构建，保证最先添加的中间件最先执行
	for i := len(ms) - 1; i >= 0; i-- {
		h = ms[i](h)
	}
	return h
}

// CoreHandler 调用链的最后一环，负责把语句交给驱动
type CoreHandler struct{}

func (CoreHandler) QueryHandler(ctx context.Context, qc *QueryContext) (*QueryResult, error) {
	if qc.conn == nil {
		return nil, ferr.ErrNilStore
	}
	switch qc.QueryType {
	case QueryTypeQuery:
		rows, err := qc.conn.QueryContext(ctx, qc.Query.SQL, qc.Query.Args...)
		if err != nil {
			return nil, ferr.NewStoreError(QueryTypeQuery, err)
		}
		return &QueryResult{Rows: rows}, nil
	case QueryTypeExec:
		res, err := qc.conn.ExecContext(ctx, qc.Query.SQL, qc.Query.Args...)
		if err != nil {
			return nil, ferr.NewStoreError(QueryTypeExec, err)
		}
		return &QueryResult{Result: res}, nil
	default:
		return nil, fmt.Errorf("repo: unknown query type: %s", qc.QueryType)
	}
}

// 仓储操作名，随 context 传递给中间件
const (
	OpInsert           = "insert"
	OpInsertBatch      = "insert_batch"
	OpUpdate           = "update"
	OpUpdateBatch      = "update_batch"
	OpDeleteByID       = "delete_by_id"
	OpDeleteBatchByID  = "delete_batch_by_id"
	OpDeleteByFilter   = "delete_by_filter"
	OpGetAll           = "get_all"
	OpGetByID          = "get_by_id"
	OpGetByFilter      = "get_by_filter"
	OpGetOneByFilter   = "get_one_by_filter"
	OpGetOptByFilter   = "get_optional_by_filter"
	operationUndefined = "raw"
)

type operationKey struct{}

// WithOperation 标记后续语句所属的仓储操作
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom 取出 context 中的操作名，没有时返回 raw
func OperationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return operationUndefined
}
