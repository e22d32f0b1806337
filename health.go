package dbconn

import (
	"context"
	"time"
)

// HealthStatus represents the connection health status
type HealthStatus struct {
	Healthy          bool          `json:"healthy"`
	Latency          time.Duration `json:"latency"`
	Error            string        `json:"error,omitempty"`
	Connection       string        `json:"connection"`
	TransactionLevel int           `json:"transaction_level"`
	Pretending       bool          `json:"pretending"`
	ReadReplica      bool          `json:"read_replica"`
}

// Ping verifies the write handle and a distinct read handle are alive.
// Missing handles are reconnected first.
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.reconnectIfMissing(ctx); err != nil {
		return err
	}

	if err := ping(ctx, c.write); err != nil {
		return err
	}
	if c.read != nil && c.read != c.write {
		return ping(ctx, c.read)
	}
	return nil
}

func ping(ctx context.Context, h Handle) error {
	p, ok := h.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return &Error{
			Code:    CodeConnectionFailed,
			Message: "ping failed",
			Op:      "Ping",
			Cause:   err,
		}
	}
	return nil
}

// Health performs a health check with detailed status
func (c *Connection) Health(ctx context.Context) HealthStatus {
	start := time.Now()

	err := c.Ping(ctx)
	latency := time.Since(start)

	status := HealthStatus{
		Healthy:          err == nil,
		Latency:          latency,
		Connection:       c.Name(),
		TransactionLevel: c.transactions,
		Pretending:       c.pretending,
		ReadReplica:      c.read != nil && c.read != c.write,
	}

	if err != nil {
		status.Error = err.Error()
	}

	return status
}

// IsHealthy returns true if the database is reachable
func (c *Connection) IsHealthy(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}
