package logger

import (
	"io"
	"time"
)

// Level 日志级别
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	// Disabled 关闭所有输出
	Disabled
)

// Field 结构化日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 仓储层使用的日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With 返回附带固定字段的子日志器
	With(fields ...Field) Logger

	SetLevel(level Level)
	SetOutput(w io.Writer)
}

// Option 日志配置项
type Option func(*Config)

// Config 日志配置
type Config struct {
	Level      Level
	Output     io.Writer
	TimeFormat string
	Component  string
}

// WithLevel 设置日志级别
func WithLevel(level Level) Option {
	return func(cfg *Config) {
		cfg.Level = level
	}
}

// WithOutput 设置输出目标
func WithOutput(w io.Writer) Option {
	return func(cfg *Config) {
		cfg.Output = w
	}
}

// WithTimeFormat 设置时间格式
func WithTimeFormat(format string) Option {
	return func(cfg *Config) {
		cfg.TimeFormat = format
	}
}

// WithComponent 为每条日志附加 component 字段
func WithComponent(name string) Option {
	return func(cfg *Config) {
		cfg.Component = name
	}
}

func defaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		TimeFormat: time.RFC3339,
	}
}

// String 字符串字段
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int 整数字段
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 64位整数字段
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool 布尔字段
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration 时长字段
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err 错误字段，键固定为 error
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any 任意类型字段
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

var defaultLogger Logger = New()

// Default 返回包级默认日志器
func Default() Logger {
	return defaultLogger
}

// SetDefault 替换包级默认日志器
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}
