package repo

import (
	"context"
	"database/sql"
	"io"

	"github.com/Masterminds/squirrel"
	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
	"github.com/georgysavva/scany/v2/dbscan"
	"github.com/google/uuid"
)

// DefaultBatchSize 未指定批大小时使用的默认值
const DefaultBatchSize = 256

// DB 绑定一个 Store，并持有中间件链和批处理配置
type DB struct {
	store       Store
	handler     Handler
	middlewares []Middleware
	logger      logger.Logger

	batchSize            int
	maxConcurrentBatches int

	placeholder squirrel.PlaceholderFormat
	structTag   string
	scanner     *dbscan.API
}

// DBOption 定义配置项
type DBOption func(*DB) error

// Open 使用已有的 Store 创建 DB
func Open(store Store, opts ...DBOption) (*DB, error) {
	if store == nil {
		return nil, ferr.ErrNilStore
	}

	db := &DB{
		store:       store,
		logger:      logger.Default(),
		batchSize:   DefaultBatchSize,
		placeholder: squirrel.Question,
		structTag:   "db",
	}

	for _, opt := range opts {
		if err := opt(db); err != nil {
			return nil, err
		}
	}

	scanner, err := dbscan.NewAPI(
		dbscan.WithStructTagKey(db.structTag),
		dbscan.WithScannableTypes((*sql.Scanner)(nil)),
	)
	if err != nil {
		return nil, err
	}
	db.scanner = scanner
	db.handler = BuildChain(CoreHandler{}, db.middlewares)

	return db, nil
}

// Exec 直接在连接池上执行写语句
func (db *DB) Exec(ctx context.Context, q *Query) (Result, error) {
	res, err := db.run(ctx, QueryTypeExec, q, db.store, "")
	if err != nil {
		return Result{}, err
	}
	return res.Result, nil
}

// Query 直接在连接池上执行查询
func (db *DB) Query(ctx context.Context, q *Query) (Rows, error) {
	res, err := db.run(ctx, QueryTypeQuery, q, db.store, "")
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (db *DB) run(ctx context.Context, typ string, q *Query, conn Conn, txID string) (*QueryResult, error) {
	if err := q.consume(); err != nil {
		return nil, err
	}
	return db.handler.QueryHandler(ctx, &QueryContext{
		QueryType: typ,
		Query:     q,
		Operation: OperationFrom(ctx),
		TxID:      txID,
		conn:      conn,
	})
}

// BeginTx 开启事务
func (db *DB) BeginTx(ctx context.Context) (*Tx, error) {
	conn, err := db.store.BeginTx(ctx)
	if err != nil {
		db.logger.Error("begin transaction failed", logger.Err(err))
		return nil, ferr.NewStoreError("begin", err)
	}

	id := uuid.NewString()
	tx := &Tx{
		db:   db,
		conn: conn,
		id:   id,
		log:  db.logger.With(logger.String("tx_id", id)),
	}
	tx.log.Debug("transaction begun")
	return tx, nil
}

// Close 关闭底层 Store
func (db *DB) Close() error {
	if c, ok := db.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BatchSize 默认批大小
func (db *DB) BatchSize() int {
	return db.batchSize
}

// Logger 返回 DB 使用的日志器
func (db *DB) Logger() logger.Logger {
	return db.logger
}

// StatementBuilder 返回使用当前占位符格式的 squirrel 构造器
func (db *DB) StatementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(db.placeholder)
}
