package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/automl/logger"
)

// maxLoggedSQL bounds the statement text in log entries. Ledger rows carry
// whole result documents as bound values.
const maxLoggedSQL = 256

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// queryLogger routes GORM output to the structured logger.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log *logger.Logger, slow time.Duration, level string) gormlogger.Interface {
	lvl, ok := gormLevels[level]
	if !ok {
		lvl = gormlogger.Warn
	}
	return &queryLogger{log: log.WithComponent("gorm"), level: lvl, slow: slow}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *queryLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Debug(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed statements at error level and slow ones at warn level.
// Missing rows are expected when a search id is looked up and are not errors.
func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow
	if !failed && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	fields := logger.MergeWithDuration(logger.Fields("sql", sql, "rows", rows), elapsed)
	switch {
	case failed:
		l.log.Error("Ledger query failed", logger.MergeWithError(fields, err))
	case slow:
		l.log.Warn("Slow ledger query", fields)
	default:
		l.log.Debug("Ledger query", fields)
	}
}
