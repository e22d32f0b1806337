package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/fernandezvara/dbconn/hooks"
)

// Open dials the configured write URL (and ReadURL, if set) and returns a
// connection that re-dials them whenever it has to reconnect.
func Open(ctx context.Context, cfg Config) (*Connection, error) {
	// Apply defaults for zero values
	cfg.applyDefaults()

	if cfg.URL == "" {
		return nil, &Error{
			Code:    CodeConfiguration,
			Message: "database URL is required",
			Op:      "Open",
		}
	}

	write, read, err := dialAll(ctx, cfg, "Open")
	if err != nil {
		return nil, err
	}
	if read != nil {
		cfg.ReadHandle = read
	}

	c := New(write, cfg)
	c.SetReconnector(DialReconnector())

	return c, nil
}

// DialReconnector returns a Reconnector that re-dials the connection's
// configured URLs and swaps the new handles in, closing the old ones.
// It refuses to run inside a transaction: the physical transaction died
// with the old handle.
func DialReconnector() Reconnector {
	return func(ctx context.Context, c *Connection) error {
		if c.TransactionLevel() >= 1 {
			return stateError("Reconnect", "can't reconnect while within transaction")
		}

		write, read, err := dialAll(ctx, c.config, "Reconnect")
		if err != nil {
			return err
		}

		if err := c.closeHandles(); err != nil {
			c.logger.WarnContext(ctx, "closing stale database handles failed", slog.String("error", err.Error()))
		}
		c.write = nil
		c.read = nil

		if err := c.SetWriteHandle(write); err != nil {
			return err
		}
		return c.SetReadHandle(read)
	}
}

// dialAll dials the write URL and the optional read URL. read is nil
// when no ReadURL is configured.
func dialAll(ctx context.Context, cfg Config, op string) (Handle, Handle, error) {
	write, err := dial(ctx, cfg, cfg.URL, op)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ReadURL == "" {
		return write, nil, nil
	}

	read, err := dial(ctx, cfg, cfg.ReadURL, op)
	if err != nil {
		_ = write.Close()
		return nil, nil, err
	}
	return write, read, nil
}

// dial opens a single dedicated connection to dsn.
func dial(ctx context.Context, cfg Config, dsn, op string) (*SQLHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	var (
		h   *SQLHandle
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		h, err = dialPostgres(ctx, cfg, dsn)
	case DriverSQLite:
		h, err = dialSQLite(ctx, dsn)
	default:
		return nil, &Error{
			Code:    CodeConfiguration,
			Message: fmt.Sprintf("unsupported driver %q", cfg.Driver),
			Op:      op,
		}
	}
	if err != nil {
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to connect to database",
			Op:      op,
			Cause:   err,
		}
	}

	if err := h.Ping(ctx); err != nil {
		_ = h.Close()
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to connect to database",
			Op:      op,
			Cause:   err,
		}
	}

	return h, nil
}

func dialPostgres(ctx context.Context, cfg Config, dsn string) (*SQLHandle, error) {
	// Create pgdriver connector with timeouts
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	)

	// One physical connection per handle
	sqlDB := sql.OpenDB(connector)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	bunDB := bun.NewDB(sqlDB, pgdialect.New())
	if err := addQueryHooks(bunDB, cfg, "postgresql"); err != nil {
		_ = bunDB.Close()
		return nil, err
	}

	conn, err := bunDB.Conn(ctx)
	if err != nil {
		_ = bunDB.Close()
		return nil, err
	}

	return NewBunHandle(conn).OnClose(bunDB.Close), nil
}

func dialSQLite(ctx context.Context, dsn string) (*SQLHandle, error) {
	sqlDB, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return NewSQLHandle(conn).OnClose(sqlDB.Close), nil
}

// addQueryHooks registers the driver-level observability hooks
func addQueryHooks(db *bun.DB, cfg Config, system string) error {
	if cfg.LogQueries || cfg.LogSlowQueries > 0 {
		db.AddQueryHook(hooks.NewLoggerHook(cfg.Logger, cfg.Name, cfg.LogQueries, cfg.LogSlowQueries))
	}
	if cfg.MetricsRegistry != nil {
		hook, err := hooks.NewMetricsHook(cfg.MetricsRegistry, cfg.Name)
		if err != nil {
			return fmt.Errorf("dbconn: failed to create metrics hook: %w", err)
		}
		db.AddQueryHook(hook)
	}
	if cfg.Tracer != nil {
		db.AddQueryHook(hooks.NewTracingHook(cfg.Tracer, system, cfg.Name))
	}
	return nil
}
