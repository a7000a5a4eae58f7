// Package filter 提供可组合的查询条件，条件不生效时不会产生任何约束
package filter

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

// Expr 条件表达式
type Expr interface {
	squirrel.Sqlizer
	ShouldApply() bool
}

type column struct {
	name  string
	build func(col string) squirrel.Sqlizer
}

func (c column) ShouldApply() bool {
	return true
}

func (c column) ToSql() (string, []any, error) {
	if strings.TrimSpace(c.name) == "" {
		return "", nil, ferr.ErrInvalidFilterColumn(c.name)
	}
	return c.build(c.name).ToSql()
}

// Eq col = val，val 为 nil 时生成 IS NULL
func Eq(col string, val any) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.Eq{c: val} }}
}

func NotEq(col string, val any) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.NotEq{c: val} }}
}

func Gt(col string, val any) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.Gt{c: val} }}
}

func Lt(col string, val any) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.Lt{c: val} }}
}

func Gte(col string, val any) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.GtOrEq{c: val} }}
}

func Lte(col string, val any) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.LtOrEq{c: val} }}
}

func Like(col string, pattern string) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.Like{c: pattern} }}
}

// ILike 大小写不敏感匹配，仅 postgres 支持
func ILike(col string, pattern string) Expr {
	return column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.ILike{c: pattern} }}
}

type set struct {
	column
	values []any
}

func (s set) ShouldApply() bool {
	return len(s.values) > 0
}

// In col IN (values)，values 为空时不生效
func In(col string, values ...any) Expr {
	vals := append([]any(nil), values...)
	return set{
		column: column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.Eq{c: vals} }},
		values: vals,
	}
}

// NotIn col NOT IN (values)，values 为空时不生效
func NotIn(col string, values ...any) Expr {
	vals := append([]any(nil), values...)
	return set{
		column: column{name: col, build: func(c string) squirrel.Sqlizer { return squirrel.NotEq{c: vals} }},
		values: vals,
	}
}

// InSlice 泛型版本的 In
func InSlice[T any](col string, values []T) Expr {
	return In(col, toAny(values)...)
}

// NotInSlice 泛型版本的 NotIn
func NotInSlice[T any](col string, values []T) Expr {
	return NotIn(col, toAny(values)...)
}

func toAny[T any](values []T) []any {
	res := make([]any, len(values))
	for i, v := range values {
		res[i] = v
	}
	return res
}
