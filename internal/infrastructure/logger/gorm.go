package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowStatement = 200 * time.Millisecond

// SQLLogger sends gorm's statement log to zap. Every line carries the
// delivery and catalog fields of the statement's context, so a slow or
// failing statement can be tied to the message that issued it.
type SQLLogger struct {
	base           *zap.Logger
	level          gormlogger.LogLevel
	slowAfter      time.Duration
	reportNotFound bool
}

// SQLLoggerOption tunes an SQLLogger
type SQLLoggerOption func(*SQLLogger)

// SlowAfter flags statements running longer than d; zero disables the check
func SlowAfter(d time.Duration) SQLLoggerOption {
	return func(l *SQLLogger) { l.slowAfter = d }
}

// ReportNotFound logs lookups that found no row as failures
func ReportNotFound() SQLLoggerOption {
	return func(l *SQLLogger) { l.reportNotFound = true }
}

// NewSQLLogger logs under the "sql" name at the given gorm level
func NewSQLLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...SQLLoggerOption) *SQLLogger {
	l := &SQLLogger{
		base:      base.Named("sql"),
		level:     level,
		slowAfter: defaultSlowStatement,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy logging at level
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *SQLLogger) Info(ctx context.Context, format string, args ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, format, args)
}

func (l *SQLLogger) Warn(ctx context.Context, format string, args ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, format, args)
}

func (l *SQLLogger) Error(ctx context.Context, format string, args ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, format, args)
}

func (l *SQLLogger) printf(ctx context.Context, floor gormlogger.LogLevel, lvl zapcore.Level, format string, args []any) {
	if l.level < floor {
		return
	}
	l.base.Log(lvl, fmt.Sprintf(format, args...), Fields(ctx)...)
}

// Trace reports one executed statement. Failures win over slowness;
// ordinary statements are only written at debug.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)

	describe := func(extra ...zap.Field) []zap.Field {
		stmt, rows := fc()
		fields := make([]zap.Field, 0, 3+len(extra))
		fields = append(fields,
			zap.String("statement", stmt),
			zap.Int64("rows_affected", rows),
			zap.Duration("took", took),
		)
		fields = append(fields, extra...)
		return append(fields, Fields(ctx)...)
	}

	switch {
	case err != nil:
		if l.level < gormlogger.Error {
			return
		}
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.reportNotFound {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			l.base.Warn("statement cancelled", describe(zap.Error(err))...)
			return
		}
		l.base.Error("statement failed", describe(zap.Error(err))...)
	case l.slowAfter > 0 && took > l.slowAfter:
		if l.level >= gormlogger.Warn {
			l.base.Warn("slow statement", describe(zap.Duration("threshold", l.slowAfter))...)
		}
	case l.level >= gormlogger.Info:
		l.base.Debug("statement", describe()...)
	}
}

// ParseSQLLevel reads a database.log_level value. Unknown values log
// warnings and failures only.
func ParseSQLLevel(name string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "off":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var _ gormlogger.Interface = (*SQLLogger)(nil)
