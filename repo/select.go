package repo

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
	"github.com/georgysavva/scany/v2/dbscan"
)

// SelectQuerier 提供基础查询语句，条件由仓储追加
type SelectQuerier interface {
	SelectQuery() squirrel.SelectBuilder
}

// IDColumner 自定义主键列名，默认为 id
type IDColumner interface {
	IDColumn() string
}

// Selectable 查询能力
type Selectable[M any, ID any] interface {
	GetAll(ctx context.Context) ([]M, error)
	GetAllWithExecutor(ctx context.Context, ex Executor) ([]M, error)
	GetByID(ctx context.Context, id ID) (*M, error)
	GetByIDWithExecutor(ctx context.Context, ex Executor, id ID) (*M, error)
	GetByFilter(ctx context.Context, f Filter) ([]M, error)
	GetByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) ([]M, error)
	GetOneByFilter(ctx context.Context, f Filter) (*M, error)
	GetOneByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) (*M, error)
	GetOptionalByFilter(ctx context.Context, f Filter) (*M, error)
	GetOptionalByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) (*M, error)
}

// SelectRepository 使用 scany 把结果映射到 M
type SelectRepository[M any, ID any] struct {
	db      *DB
	querier SelectQuerier
}

var _ Selectable[struct{}, int64] = (*SelectRepository[struct{}, int64])(nil)

func NewSelectRepository[M any, ID any](db *DB, querier SelectQuerier) *SelectRepository[M, ID] {
	return &SelectRepository[M, ID]{db: db, querier: querier}
}

func (r *SelectRepository[M, ID]) GetAll(ctx context.Context) ([]M, error) {
	return r.GetAllWithExecutor(ctx, r.db)
}

func (r *SelectRepository[M, ID]) GetAllWithExecutor(ctx context.Context, ex Executor) ([]M, error) {
	return r.all(WithOperation(ctx, OpGetAll), ex, r.builder())
}

func (r *SelectRepository[M, ID]) GetByID(ctx context.Context, id ID) (*M, error) {
	return r.GetByIDWithExecutor(ctx, r.db, id)
}

// GetByIDWithExecutor 没有记录时返回 ErrNoRows
func (r *SelectRepository[M, ID]) GetByIDWithExecutor(ctx context.Context, ex Executor, id ID) (*M, error) {
	b := r.builder().Where(squirrel.Eq{r.idColumn(): id}).Limit(1)
	return r.one(WithOperation(ctx, OpGetByID), ex, b)
}

func (r *SelectRepository[M, ID]) GetByFilter(ctx context.Context, f Filter) ([]M, error) {
	return r.GetByFilterWithExecutor(ctx, r.db, f)
}

// GetByFilterWithExecutor 条件不生效时返回全部记录
func (r *SelectRepository[M, ID]) GetByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) ([]M, error) {
	return r.all(WithOperation(ctx, OpGetByFilter), ex, applyFilter(r.builder(), f))
}

func (r *SelectRepository[M, ID]) GetOneByFilter(ctx context.Context, f Filter) (*M, error) {
	return r.GetOneByFilterWithExecutor(ctx, r.db, f)
}

func (r *SelectRepository[M, ID]) GetOneByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) (*M, error) {
	return r.one(WithOperation(ctx, OpGetOneByFilter), ex, applyFilter(r.builder(), f).Limit(1))
}

func (r *SelectRepository[M, ID]) GetOptionalByFilter(ctx context.Context, f Filter) (*M, error) {
	return r.GetOptionalByFilterWithExecutor(ctx, r.db, f)
}

// GetOptionalByFilterWithExecutor 没有记录时返回 nil, nil
func (r *SelectRepository[M, ID]) GetOptionalByFilterWithExecutor(ctx context.Context, ex Executor, f Filter) (*M, error) {
	m, err := r.one(WithOperation(ctx, OpGetOptByFilter), ex, applyFilter(r.builder(), f).Limit(1))
	if errors.Is(err, ferr.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *SelectRepository[M, ID]) builder() squirrel.SelectBuilder {
	return r.querier.SelectQuery().PlaceholderFormat(r.db.placeholder)
}

func (r *SelectRepository[M, ID]) idColumn() string {
	if c, ok := r.querier.(IDColumner); ok {
		return c.IDColumn()
	}
	return "id"
}

func (r *SelectRepository[M, ID]) all(ctx context.Context, ex Executor, b squirrel.SelectBuilder) ([]M, error) {
	rows, err := ex.Query(ctx, FromSqlizer(b))
	if err != nil {
		return nil, err
	}
	var dst []M
	if err = r.db.scanner.ScanAll(&dst, rows); err != nil {
		return nil, err
	}
	return dst, nil
}

func (r *SelectRepository[M, ID]) one(ctx context.Context, ex Executor, b squirrel.SelectBuilder) (*M, error) {
	rows, err := ex.Query(ctx, FromSqlizer(b))
	if err != nil {
		return nil, err
	}
	var dst M
	if err = r.db.scanner.ScanOne(&dst, rows); err != nil {
		if dbscan.NotFound(err) {
			return nil, ferr.ErrNoRows
		}
		return nil, err
	}
	return &dst, nil
}

func applyFilter(b squirrel.SelectBuilder, f Filter) squirrel.SelectBuilder {
	if f == nil || !f.ShouldApply() {
		return b
	}
	return b.Where(f)
}
