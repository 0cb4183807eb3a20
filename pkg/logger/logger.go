// Package logger provides a zap-based application logger that stamps the
// active trace id on every entry.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity written by a Logger.
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// TraceIDFn extracts a trace id from a context. It may return "".
type TraceIDFn func(ctx context.Context) string

// Logger writes structured JSON log lines.
type Logger struct {
	z         *zap.SugaredLogger
	traceIDFn TraceIDFn
}

// New builds a Logger writing JSON to w.
func New(w io.Writer, minLevel Level, service string, traceIDFn TraceIDFn) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), minLevel)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("service", service))

	return &Logger{z: z.Sugar(), traceIDFn: traceIDFn}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

// ParseLevel maps a level name to a Level, falling back to info.
func ParseLevel(s string) Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return LevelInfo
	}
	return lvl
}

// Debug logs msg at debug level with alternating key/value pairs.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.z.Debugw(msg, l.fields(ctx, args)...)
}

// Info logs msg at info level with alternating key/value pairs.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.z.Infow(msg, l.fields(ctx, args)...)
}

// Warn logs msg at warn level with alternating key/value pairs.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.z.Warnw(msg, l.fields(ctx, args)...)
}

// Error logs msg at error level with alternating key/value pairs.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.z.Errorw(msg, l.fields(ctx, args)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) fields(ctx context.Context, args []any) []any {
	if l.traceIDFn == nil || ctx == nil {
		return args
	}
	if id := l.traceIDFn(ctx); id != "" {
		return append([]any{"trace_id", id}, args...)
	}
	return args
}
