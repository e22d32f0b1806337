// Package dbconn provides a resilient database connection manager.
// It wraps a write handle and an optional read handle with nested
// transaction bookkeeping, reconnect-and-retry on lost connections,
// pretend (dry-run) mode and per-statement query logging.
package dbconn

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Supported drivers for Open
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds connection configuration
type Config struct {
	// Identity
	Name        string // Logical connection name (default: "default")
	Database    string // Database name, informational
	TablePrefix string // Prefix the grammar layer prepends to table names

	// Connection
	Driver     string // DriverPostgres (default) or DriverSQLite
	URL        string // Write connection string (required by Open)
	ReadURL    string // Optional replica connection string
	ReadHandle Handle // Optional distinct read handle (New only; Open dials ReadURL)

	// Timeouts, enforced by the driver
	DialTimeout  time.Duration // Connection dial timeout (default: 5s)
	ReadTimeout  time.Duration // Read timeout (default: 30s)
	WriteTimeout time.Duration // Write timeout (default: 30s)

	// Execution
	EnableQueryLog         bool     // Start with the connection query log enabled
	LostConnectionMessages []string // Substrings marking a lost connection (default: DefaultLostConnectionMessages)

	// Observability (all optional)
	Logger          *slog.Logger          // Structured logger
	LogQueries      bool                  // Log all queries at driver level
	LogSlowQueries  time.Duration         // Log queries slower than this (0 = disabled)
	MetricsRegistry prometheus.Registerer // Prometheus registry for metrics
	Tracer          trace.Tracer          // OpenTelemetry tracer
}

// DefaultConfig returns sensible defaults
func DefaultConfig(url string) Config {
	return Config{
		Name:                   "default",
		Driver:                 DriverPostgres,
		URL:                    url,
		DialTimeout:            5 * time.Second,
		ReadTimeout:            30 * time.Second,
		WriteTimeout:           30 * time.Second,
		LostConnectionMessages: DefaultLostConnectionMessages(),
	}
}

// applyDefaults fills in zero values with defaults
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if len(c.LostConnectionMessages) == 0 {
		c.LostConnectionMessages = DefaultLostConnectionMessages()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

// WithName sets the logical connection name
func (c Config) WithName(name string) Config {
	c.Name = name
	return c
}

// WithReadURL routes reads outside transactions to a replica
func (c Config) WithReadURL(url string) Config {
	c.ReadURL = url
	return c
}

// WithTablePrefix sets the table prefix
func (c Config) WithTablePrefix(prefix string) Config {
	c.TablePrefix = prefix
	return c
}

// WithLostConnectionMessages replaces the lost connection substrings
func (c Config) WithLostConnectionMessages(messages ...string) Config {
	c.LostConnectionMessages = messages
	return c
}

// WithLogger enables query logging
func (c Config) WithLogger(logger *slog.Logger) Config {
	c.Logger = logger
	c.LogQueries = true
	return c
}

// WithSlowQueryLog logs queries slower than the threshold
func (c Config) WithSlowQueryLog(threshold time.Duration) Config {
	c.LogSlowQueries = threshold
	return c
}

// WithMetrics enables Prometheus metrics
func (c Config) WithMetrics(registry prometheus.Registerer) Config {
	c.MetricsRegistry = registry
	return c
}

// WithTracing enables OpenTelemetry tracing
func (c Config) WithTracing(tracer trace.Tracer) Config {
	c.Tracer = tracer
	return c
}
