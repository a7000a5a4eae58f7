package repo

import (
	"github.com/Masterminds/squirrel"
	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

// WithLogger 设置日志器
func WithLogger(l logger.Logger) DBOption {
	return func(db *DB) error {
		if l != nil {
			db.logger = l
		}
		return nil
	}
}

// WithBatchSize 设置 InsertMany 等方法使用的默认批大小
func WithBatchSize(n int) DBOption {
	return func(db *DB) error {
		if n <= 0 {
			return ferr.ErrInvalidBatchSize(n)
		}
		db.batchSize = n
		return nil
	}
}

// WithMaxConcurrentBatches 限制分块并发执行的数量，0 表示不限制
func WithMaxConcurrentBatches(n int) DBOption {
	return func(db *DB) error {
		if n < 0 {
			return ferr.ErrInvalidConcurrency(n)
		}
		db.maxConcurrentBatches = n
		return nil
	}
}

// WithPlaceholderFormat 设置 squirrel 占位符格式，postgres 使用 squirrel.Dollar
func WithPlaceholderFormat(f squirrel.PlaceholderFormat) DBOption {
	return func(db *DB) error {
		db.placeholder = f
		return nil
	}
}

// WithStructTag 设置结果映射使用的结构体标签
func WithStructTag(tag string) DBOption {
	return func(db *DB) error {
		db.structTag = tag
		return nil
	}
}

// WithMiddlewares 注册中间件，先注册的先执行
func WithMiddlewares(ms ...Middleware) DBOption {
	return func(db *DB) error {
		db.middlewares = append(db.middlewares, ms...)
		return nil
	}
}
