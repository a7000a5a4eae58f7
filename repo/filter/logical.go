package filter

import "github.com/Masterminds/squirrel"

type conj struct {
	exprs []Expr
	or    bool
}

// And 只组合生效的子条件，没有生效的子条件时整体不生效
func And(exprs ...Expr) Expr {
	return conj{exprs: exprs}
}

// Or 只组合生效的子条件
func Or(exprs ...Expr) Expr {
	return conj{exprs: exprs, or: true}
}

func (c conj) applied() []squirrel.Sqlizer {
	var res []squirrel.Sqlizer
	for _, e := range c.exprs {
		if e != nil && e.ShouldApply() {
			res = append(res, e)
		}
	}
	return res
}

func (c conj) ShouldApply() bool {
	for _, e := range c.exprs {
		if e != nil && e.ShouldApply() {
			return true
		}
	}
	return false
}

func (c conj) ToSql() (string, []any, error) {
	parts := c.applied()
	if len(parts) == 1 {
		return parts[0].ToSql()
	}
	if c.or {
		return squirrel.Or(parts).ToSql()
	}
	return squirrel.And(parts).ToSql()
}

type not struct {
	expr Expr
}

// Not 对生效的子条件取反
func Not(e Expr) Expr {
	return not{expr: e}
}

func (n not) ShouldApply() bool {
	return n.expr != nil && n.expr.ShouldApply()
}

func (n not) ToSql() (string, []any, error) {
	sql, args, err := n.expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

type raw struct {
	sql  string
	args []any
}

// Raw 原样拼接的条件片段，sql 为空时不生效
func Raw(sql string, args ...any) Expr {
	return raw{sql: sql, args: args}
}

func (r raw) ShouldApply() bool {
	return r.sql != ""
}

func (r raw) ToSql() (string, []any, error) {
	return squirrel.Expr(r.sql, r.args...).ToSql()
}

type noop struct{}

// NoOp 永不生效的条件
func NoOp() Expr {
	return noop{}
}

func (noop) ShouldApply() bool {
	return false
}

func (noop) ToSql() (string, []any, error) {
	return "", nil, nil
}

// Maybe v 为 nil 时不生效，否则由 build 构造条件
func Maybe[T any](v *T, build func(T) Expr) Expr {
	if v == nil {
		return noop{}
	}
	return build(*v)
}
