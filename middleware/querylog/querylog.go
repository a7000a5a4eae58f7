// Package querylog 记录每条语句的执行情况
package querylog

import (
	"context"
	"time"

	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo"
)

type MiddlewareBuilder struct {
	logger logger.Logger
	// slow 超过该耗时的语句以 Warn 级别输出，0 表示不区分
	slow    time.Duration
	logArgs bool
}

func NewMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{
		logger: logger.Default(),
	}
}

func (m *MiddlewareBuilder) SetLogger(l logger.Logger) *MiddlewareBuilder {
	m.logger = l
	return m
}

func (m *MiddlewareBuilder) SlowThreshold(d time.Duration) *MiddlewareBuilder {
	m.slow = d
	return m
}

// LogArgs 输出参数，参数里可能有敏感数据
func (m *MiddlewareBuilder) LogArgs(on bool) *MiddlewareBuilder {
	m.logArgs = on
	return m
}

func (m *MiddlewareBuilder) Build() repo.Middleware {
	return func(next repo.Handler) repo.Handler {
		return repo.HandlerFunc(func(ctx context.Context, qc *repo.QueryContext) (*repo.QueryResult, error) {
			start := time.Now()
			res, err := next.QueryHandler(ctx, qc)
			elapsed := time.Since(start)

			fields := []logger.Field{
				logger.String("type", qc.QueryType),
				logger.String("operation", qc.Operation),
				logger.String("sql", qc.Query.SQL),
				logger.Duration("elapsed", elapsed),
			}
			if qc.InTx() {
				fields = append(fields, logger.String("tx_id", qc.TxID))
			}
			if m.logArgs {
				fields = append(fields, logger.Any("args", qc.Query.Args))
			}

			switch {
			case err != nil:
				m.logger.Error("query failed", append(fields, logger.Err(err))...)
			case m.slow > 0 && elapsed >= m.slow:
				m.logger.Warn("slow query", fields...)
			default:
				m.logger.Debug("query", fields...)
			}
			return res, err
		})
	}
}
