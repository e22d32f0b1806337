package dbconn

import (
	"context"
	"log/slog"
)

// Reconnector restores a connection's handles in place, typically through
// SetWriteHandle and SetReadHandle. Its errors are returned as-is and never retried.
type Reconnector func(ctx context.Context, c *Connection) error

// SetReconnector installs the reconnect strategy; nil removes it.
func (c *Connection) SetReconnector(r Reconnector) *Connection {
	c.reconnector = r
	return c
}

// Reconnect invokes the reconnector. Without one it fails with a
// configuration error.
func (c *Connection) Reconnect(ctx context.Context) error {
	if c.reconnector == nil {
		return &Error{
			Code:    CodeConfiguration,
			Message: "lost connection and no reconnector available",
			Op:      "Reconnect",
		}
	}

	c.logger.WarnContext(ctx, "reconnecting database connection",
		slog.Int("transaction_level", c.transactions))

	if err := c.reconnector(ctx, c); err != nil {
		c.logger.ErrorContext(ctx, "database reconnect failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// reconnectIfMissing reconnects when the write handle or the resolved read
// handle is absent. Reconnection is all-or-nothing.
func (c *Connection) reconnectIfMissing(ctx context.Context) error {
	if c.write == nil || c.readHandle() == nil {
		return c.Reconnect(ctx)
	}
	return nil
}

func errNoHandle(op string) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: "reconnector did not install a handle",
		Op:      op,
	}
}
