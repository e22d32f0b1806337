package dbconn

import (
	"context"
	"log/slog"
)

// TxFunc is a function executed within a transaction
type TxFunc func(c *Connection) error

// TransactionLevel returns the number of nested logical transactions.
func (c *Connection) TransactionLevel() int {
	return c.transactions
}

// BeginTransaction starts a logical transaction. Only the outermost call
// reaches the driver, and only if the write handle implements TxBeginner.
// Nested calls never create savepoints.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	if c.transactions == 0 {
		h, err := c.WriteHandle(ctx)
		if err != nil {
			return err
		}
		if b, ok := h.(TxBeginner); ok {
			if err := b.Begin(ctx); err != nil {
				return wrapTxError(err, "BeginTransaction")
			}
		}
	}

	c.transactions++
	return nil
}

// Commit commits the outermost transaction. Nested commits only decrement
// the transaction level; a failed physical commit leaves the level at 1.
func (c *Connection) Commit(ctx context.Context) error {
	switch {
	case c.transactions == 0:
		return ErrNoTransaction
	case c.transactions > 1:
		c.transactions--
		return nil
	}

	if c.write == nil {
		return stateError("Commit", "write handle lost during transaction")
	}
	if err := c.write.Commit(ctx); err != nil {
		return wrapTxError(err, "Commit")
	}

	c.transactions = 0
	return nil
}

// Rollback rolls back the outermost transaction. A nested Rollback only
// decrements the transaction level: it does not undo any work, which is
// only discarded when the outermost transaction rolls back. Rollback
// without an active transaction is a no-op.
func (c *Connection) Rollback(ctx context.Context) error {
	switch {
	case c.transactions == 0:
		return nil
	case c.transactions > 1:
		c.transactions--
		return nil
	}

	c.transactions = 0

	if c.write == nil {
		return stateError("Rollback", "write handle lost during transaction")
	}
	return wrapTxError(c.write.Rollback(ctx), "Rollback")
}

// Transaction executes fn within a transaction with automatic commit/rollback.
// Exactly one of commit or rollback runs. When fn fails its error is
// returned unchanged; when commit fails the commit error is returned.
func (c *Connection) Transaction(ctx context.Context, fn TxFunc) error {
	if err := c.BeginTransaction(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			c.rollbackQuietly(ctx)
			panic(p)
		}
	}()

	if err := fn(c); err != nil {
		c.rollbackQuietly(ctx)
		return err
	}

	if err := c.Commit(ctx); err != nil {
		c.rollbackQuietly(ctx)
		return err
	}

	return nil
}

func (c *Connection) rollbackQuietly(ctx context.Context) {
	if err := c.Rollback(ctx); err != nil {
		c.logger.ErrorContext(ctx, "transaction rollback failed",
			slog.String("error", err.Error()),
			slog.Int("transaction_level", c.transactions))
	}
}
