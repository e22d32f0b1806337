package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
)

// QueryEvent describes one logical statement run by a connection.
// A retried statement produces a single event.
type QueryEvent struct {
	Connection string  // Logical connection name
	Query      string  // Statement as passed by the caller
	Bindings   []any   // Normalized bindings
	Time       float64 // Elapsed milliseconds, rounded to two decimals
	Err        error   // Final error, nil on success
	Pretend    bool    // Recorded while pretending; nothing reached the database
}

// Duration returns Time as a time.Duration.
func (e QueryEvent) Duration() time.Duration {
	return time.Duration(e.Time * float64(time.Millisecond))
}

// QueryListener receives query events while query logging is enabled.
// Implementations must not panic; they run on the caller's goroutine.
type QueryListener interface {
	OnQuery(ctx context.Context, event QueryEvent)
}

// QueryListenerFunc adapts a function to QueryListener.
type QueryListenerFunc func(ctx context.Context, event QueryEvent)

// OnQuery calls f(ctx, event).
func (f QueryListenerFunc) OnQuery(ctx context.Context, event QueryEvent) {
	f(ctx, event)
}

// SlogListener writes query events to a slog.Logger.
type SlogListener struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

// NewSlogListener creates a listener logging every event at debug level,
// slow ones at warn and failed ones at error.
func NewSlogListener(logger *slog.Logger, slowThreshold time.Duration) *SlogListener {
	return &SlogListener{logger: logger, slowThreshold: slowThreshold}
}

// OnQuery implements QueryListener.
func (l *SlogListener) OnQuery(ctx context.Context, e QueryEvent) {
	attrs := []slog.Attr{
		slog.String("connection", e.Connection),
		slog.String("query", truncate(e.Query)),
		slog.Int("bindings", len(e.Bindings)),
		slog.Float64("time_ms", e.Time),
		slog.String("operation", OperationType(e.Query)),
	}
	if e.Pretend {
		attrs = append(attrs, slog.Bool("pretend", true))
	}

	switch {
	case e.Err != nil:
		attrs = append(attrs, slog.String("error", e.Err.Error()))
		l.logger.LogAttrs(ctx, slog.LevelError, "database query failed", attrs...)
	case l.slowThreshold > 0 && e.Duration() >= l.slowThreshold:
		l.logger.LogAttrs(ctx, slog.LevelWarn, "slow database query", attrs...)
	default:
		l.logger.LogAttrs(ctx, slog.LevelDebug, "database query", attrs...)
	}
}

// ZerologListener writes query events to a zerolog.Logger.
type ZerologListener struct {
	logger        zerolog.Logger
	slowThreshold time.Duration
}

// NewZerologListener creates a zerolog backed listener.
func NewZerologListener(logger zerolog.Logger, slowThreshold time.Duration) *ZerologListener {
	return &ZerologListener{logger: logger, slowThreshold: slowThreshold}
}

// OnQuery implements QueryListener.
func (l *ZerologListener) OnQuery(_ context.Context, e QueryEvent) {
	var ev *zerolog.Event
	msg := "database query"

	switch {
	case e.Err != nil:
		ev = l.logger.Error().Err(e.Err)
		msg = "database query failed"
	case l.slowThreshold > 0 && e.Duration() >= l.slowThreshold:
		ev = l.logger.Warn()
		msg = "slow database query"
	default:
		ev = l.logger.Debug()
	}

	ev.Str("connection", e.Connection).
		Str("query", truncate(e.Query)).
		Int("bindings", len(e.Bindings)).
		Float64("time_ms", e.Time).
		Str("operation", OperationType(e.Query)).
		Bool("pretend", e.Pretend).
		Msg(msg)
}
