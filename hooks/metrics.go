package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// MetricsHook implements Prometheus metrics collection
type MetricsHook struct {
	connection    string
	queryDuration *prometheus.HistogramVec
	queryTotal    *prometheus.CounterVec
	queryErrors   *prometheus.CounterVec
}

// NewMetricsHook creates a new metrics hook and registers collectors.
// Collectors are shared between connections; the connection name is a label.
func NewMetricsHook(registry prometheus.Registerer, connection string) (*MetricsHook, error) {
	h := &MetricsHook{
		connection: connection,
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbconn_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"connection", "operation"},
		),
		queryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbconn_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"connection", "operation"},
		),
		queryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbconn_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"connection", "operation"},
		),
	}

	var err error
	if h.queryDuration, err = register(registry, h.queryDuration); err != nil {
		return nil, err
	}
	if h.queryTotal, err = register(registry, h.queryTotal); err != nil {
		return nil, err
	}
	if h.queryErrors, err = register(registry, h.queryErrors); err != nil {
		return nil, err
	}

	return h, nil
}

// register registers c, reusing an identical collector registered earlier
// (a second connection, or a reconnect building a new hook).
func register[T prometheus.Collector](registry prometheus.Registerer, c T) (T, error) {
	if err := registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return c, err
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// BeforeQuery is called before a query is executed
func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery is called after a query is executed
func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime).Seconds()
	op := OperationType(event.Query)

	h.queryDuration.WithLabelValues(h.connection, op).Observe(duration)
	h.queryTotal.WithLabelValues(h.connection, op).Inc()

	if event.Err != nil {
		h.queryErrors.WithLabelValues(h.connection, op).Inc()
	}
}
