package dbconn

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fernandezvara/dbconn/hooks"
)

// Connection wraps a write handle and an optional read handle.
//
// A Connection is not safe for concurrent use: transaction level, pretend
// state and handle references are unsynchronized. Use one Connection per
// goroutine; independent Connections share nothing.
type Connection struct {
	config Config
	logger *slog.Logger

	write Handle
	read  Handle

	reconnector  Reconnector
	lostMessages []string

	transactions int

	pretending     bool
	loggingQueries bool
	listeners      []hooks.QueryListener
	queryLog       []hooks.QueryEvent
}

// New creates a connection around an already open write handle.
// write may be nil, in which case the first statement reconnects.
func New(write Handle, cfg Config) *Connection {
	cfg.applyDefaults()

	read := cfg.ReadHandle
	cfg.ReadHandle = nil

	return &Connection{
		config:         cfg,
		logger:         cfg.Logger.With(slog.String("connection", cfg.Name)),
		write:          write,
		read:           read,
		lostMessages:   cfg.LostConnectionMessages,
		loggingQueries: cfg.EnableQueryLog,
	}
}

// Name returns the logical connection name
func (c *Connection) Name() string {
	return c.config.Name
}

// DatabaseName returns the configured database name
func (c *Connection) DatabaseName() string {
	return c.config.Database
}

// TablePrefix returns the table prefix used by the grammar layer
func (c *Connection) TablePrefix() string {
	return c.config.TablePrefix
}

// SetTablePrefix changes the table prefix
func (c *Connection) SetTablePrefix(prefix string) {
	c.config.TablePrefix = prefix
}

// Config returns the current configuration
func (c *Connection) Config() Config {
	return c.config
}

// WriteHandle returns the write handle, reconnecting first if it is absent.
func (c *Connection) WriteHandle(ctx context.Context) (Handle, error) {
	if c.write == nil {
		if err := c.Reconnect(ctx); err != nil {
			return nil, err
		}
		if c.write == nil {
			return nil, errNoHandle("WriteHandle")
		}
	}
	return c.write, nil
}

// ReadHandle returns the handle reads should use. Inside a transaction, or
// when no distinct read handle is configured, that is the write handle.
func (c *Connection) ReadHandle(ctx context.Context) (Handle, error) {
	if h := c.readHandle(); h != nil {
		return h, nil
	}
	if err := c.Reconnect(ctx); err != nil {
		return nil, err
	}
	if h := c.readHandle(); h != nil {
		return h, nil
	}
	return nil, errNoHandle("ReadHandle")
}

// readHandle resolves the read handle without reconnecting.
func (c *Connection) readHandle() Handle {
	if c.transactions >= 1 {
		return c.write
	}
	if c.read != nil {
		return c.read
	}
	return c.write
}

// SetWriteHandle swaps the write handle. It fails while a transaction is active.
func (c *Connection) SetWriteHandle(h Handle) error {
	if c.transactions >= 1 {
		return stateError("SetWriteHandle", "can't swap write handle while within transaction")
	}
	c.write = h
	return nil
}

// SetReadHandle swaps the read handle; nil routes reads to the write handle.
// It fails while a transaction is active.
func (c *Connection) SetReadHandle(h Handle) error {
	if c.transactions >= 1 {
		return stateError("SetReadHandle", "can't swap read handle while within transaction")
	}
	c.read = h
	return nil
}

// Disconnect closes and drops both handles. The next statement reconnects.
func (c *Connection) Disconnect() error {
	if c.transactions >= 1 {
		return stateError("Disconnect", "can't disconnect while within transaction")
	}
	err := c.closeHandles()
	c.write = nil
	c.read = nil
	return err
}

// Close closes both handles regardless of transaction state.
func (c *Connection) Close() error {
	err := c.closeHandles()
	c.write = nil
	c.read = nil
	c.transactions = 0
	return err
}

func (c *Connection) closeHandles() error {
	var errs []error
	if cl, ok := c.write.(Closer); ok {
		errs = append(errs, cl.Close())
	}
	if c.read != nil && c.read != c.write {
		if cl, ok := c.read.(Closer); ok {
			errs = append(errs, cl.Close())
		}
	}
	return errors.Join(errs...)
}
