package store

import (
	"context"
	"time"

	"gorm.io/gorm/logger"

	"github.com/justapithecus/logbook/log"
)

// SlowQueryThreshold is the duration above which a statement is logged as slow.
const SlowQueryThreshold = time.Second

// GormLogger routes gorm's logging through the structured logger.
type GormLogger struct {
	logger   *log.Logger
	LogLevel logger.LogLevel
}

// NewGormLogger returns a GormLogger at warn level.
func NewGormLogger(l *log.Logger) *GormLogger {
	if l == nil {
		l = log.Nop()
	}
	return &GormLogger{logger: l, LogLevel: logger.Warn}
}

// LogMode returns a copy at the given level.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *l
	n.LogLevel = level
	return &n
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Info {
		l.logger.Info(msg, map[string]any{"data": data})
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Warn {
		l.logger.Warn(msg, map[string]any{"data": data})
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Error {
		l.logger.Error(msg, map[string]any{"data": data})
	}
}

// Trace logs failed statements, slow statements, and at info level every statement.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := map[string]any{
		"sql":     sql,
		"rows":    rows,
		"time_ms": float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && l.LogLevel >= logger.Error:
		fields["error"] = err.Error()
		l.logger.Error("sql failed", fields)
	case elapsed > SlowQueryThreshold && l.LogLevel >= logger.Warn:
		l.logger.Warn("slow sql", fields)
	case l.LogLevel == logger.Info:
		l.logger.Debug("sql", fields)
	}
}
