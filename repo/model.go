package repo

import "github.com/Masterminds/squirrel"

// Model 带有可选标识的实体，没有标识表示尚未持久化
type Model[ID any] interface {
	GetID() (ID, bool)
}

// HasID 模型是否已有标识
func HasID[ID any](m Model[ID]) bool {
	_, ok := m.GetID()
	return ok
}

// Filter 可选择性生效的查询条件，ShouldApply 为 false 时表示没有任何约束
type Filter interface {
	squirrel.Sqlizer
	ShouldApply() bool
}

// TableNamer 提供表名
type TableNamer interface {
	TableName() string
}
