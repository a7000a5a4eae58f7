package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// zerologLogger 基于 zerolog 的实现
type zerologLogger struct {
	mu   sync.RWMutex
	zlog zerolog.Logger
}

// New 创建 zerolog 日志器
func New(opts ...Option) Logger {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat
	zctx := zerolog.New(out).With().Timestamp()
	if cfg.Component != "" {
		zctx = zctx.Str("component", cfg.Component)
	}
	return &zerologLogger{zlog: zctx.Logger().Level(toZerologLevel(cfg.Level))}
}

// NewNop 创建丢弃所有输出的日志器
func NewNop() Logger {
	return &zerologLogger{zlog: zerolog.Nop()}
}

func (l *zerologLogger) logger() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	zl := l.zlog
	return &zl
}

func (l *zerologLogger) Debug(msg string, fields ...Field) {
	write(l.logger().Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...Field) {
	write(l.logger().Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...Field) {
	write(l.logger().Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...Field) {
	write(l.logger().Error(), msg, fields)
}

func (l *zerologLogger) With(fields ...Field) Logger {
	zctx := l.logger().With()
	for _, f := range fields {
		zctx = addFieldToContext(zctx, f)
	}
	return &zerologLogger{zlog: zctx.Logger()}
}

func (l *zerologLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zlog = l.zlog.Level(toZerologLevel(level))
}

func (l *zerologLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zlog = l.zlog.Output(w)
}

func write(event *zerolog.Event, msg string, fields []Field) {
	// 级别被过滤时 event 为 nil
	if event == nil {
		return
	}
	for _, f := range fields {
		addFieldToEvent(event, f)
	}
	event.Msg(msg)
}

func toZerologLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case Disabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func addFieldToEvent(event *zerolog.Event, f Field) {
	switch v := f.Value.(type) {
	case string:
		event.Str(f.Key, v)
	case int:
		event.Int(f.Key, v)
	case int64:
		event.Int64(f.Key, v)
	case bool:
		event.Bool(f.Key, v)
	case time.Duration:
		event.Dur(f.Key, v)
	case error:
		event.AnErr(f.Key, v)
	default:
		event.Interface(f.Key, v)
	}
}

func addFieldToContext(zctx zerolog.Context, f Field) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return zctx.Str(f.Key, v)
	case int:
		return zctx.Int(f.Key, v)
	case int64:
		return zctx.Int64(f.Key, v)
	case bool:
		return zctx.Bool(f.Key, v)
	case time.Duration:
		return zctx.Dur(f.Key, v)
	case error:
		return zctx.AnErr(f.Key, v)
	default:
		return zctx.Interface(f.Key, v)
	}
}
