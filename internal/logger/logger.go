// Package logger builds the zap loggers used across homereap and carries a
// logger through context for the packages that only receive a ctx.
package logger

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey struct{}

// NewContext returns a context carrying the given logger.
func NewContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// NewConsole returns a console-encoded logger writing to stderr. In the
// detached child the parent has already redirected stderr into the run's log
// file, so the same logger serves both postures.
func NewConsole() *zap.Logger {
	cfg := zap.NewProductionConfig()
	// The per-run log file is the only record of what a sweep did to the
	// host, so keep command-level debug detail in it.
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	log, err := cfg.Build()
	if err != nil {
		// The static config above cannot fail to build; fall back anyway.
		return zap.NewNop()
	}
	return log
}

// LogFileName returns the path of a fresh per-run log file under dir.
func LogFileName(dir string, t time.Time) string {
	return filepath.Join(dir, "homereap-"+t.Format("20060102-150405")+".log")
}
