package hooks

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingHook implements OpenTelemetry tracing
type TracingHook struct {
	tracer     trace.Tracer
	system     string
	connection string
}

// NewTracingHook creates a new tracing hook. system is reported as db.system.
func NewTracingHook(tracer trace.Tracer, system, connection string) *TracingHook {
	return &TracingHook{tracer: tracer, system: system, connection: connection}
}

type spanCtxKey struct{}

// BeforeQuery is called before a query is executed
func (h *TracingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	if h.tracer == nil {
		return ctx
	}

	ctx, span := h.tracer.Start(ctx, "db."+OperationType(event.Query),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return context.WithValue(ctx, spanCtxKey{}, span)
}

// AfterQuery is called after a query is executed
func (h *TracingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	span, ok := ctx.Value(spanCtxKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", h.system),
		attribute.String("db.name", h.connection),
		attribute.String("db.statement", truncate(event.Query)),
		attribute.String("db.operation", OperationType(event.Query)),
	)

	if event.Err != nil {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
