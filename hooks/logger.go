// Package hooks provides observability hooks for dbconn.
//
// Driver-level hooks (LoggerHook, MetricsHook, TracingHook) implement
// bun.QueryHook and see every statement sent over a bun connection,
// including both attempts of a retried statement. Query listeners
// (SlogListener, ZerologListener) receive one QueryEvent per logical
// statement from the connection's query log.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// LoggerHook implements query logging
type LoggerHook struct {
	logger        *slog.Logger
	connection    string
	logAll        bool
	slowThreshold time.Duration
}

// NewLoggerHook creates a new logger hook for the named connection
func NewLoggerHook(logger *slog.Logger, connection string, logAll bool, slowThreshold time.Duration) *LoggerHook {
	return &LoggerHook{
		logger:        logger,
		connection:    connection,
		logAll:        logAll,
		slowThreshold: slowThreshold,
	}
}

// BeforeQuery is called before a query is executed
func (h *LoggerHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery is called after a query is executed
func (h *LoggerHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	slow := h.slowThreshold > 0 && duration >= h.slowThreshold

	if !h.logAll && !slow && event.Err == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("connection", h.connection),
		slog.Duration("duration", duration),
		slog.String("operation", OperationType(event.Query)),
	}

	if h.logAll || slow {
		attrs = append(attrs, slog.String("query", truncate(event.Query)))
	}

	switch {
	case event.Err != nil:
		attrs = append(attrs, slog.String("error", event.Err.Error()))
		h.logger.LogAttrs(ctx, slog.LevelError, "database query failed", attrs...)
	case slow:
		h.logger.LogAttrs(ctx, slog.LevelWarn, "slow database query", attrs...)
	default:
		h.logger.LogAttrs(ctx, slog.LevelDebug, "database query", attrs...)
	}
}
