package dbconn

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// TxOptions configures the physical transactions opened by an SQLHandle
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// DefaultTxOptions returns default transaction options
func DefaultTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  false,
	}
}

// ReadOnlyTxOptions returns options for read-only transactions
func ReadOnlyTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  true,
	}
}

// SerializableTxOptions returns options for serializable transactions
func SerializableTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelSerializable,
		ReadOnly:  false,
	}
}

type sqlConn interface {
	bun.IConn
	PingContext(ctx context.Context) error
	Close() error
}

type sqlTx interface {
	bun.IConn
	Commit() error
	Rollback() error
}

// SQLHandle adapts one dedicated database/sql connection to Handle.
// Statements run in autocommit mode until Begin opens a physical
// transaction; Commit and Rollback end it.
type SQLHandle struct {
	conn    sqlConn
	beginTx func(ctx context.Context, opts *sql.TxOptions) (sqlTx, error)
	tx      sqlTx
	aborted error
	opts    TxOptions
	onClose func() error
}

var (
	_ Handle     = (*SQLHandle)(nil)
	_ TxBeginner = (*SQLHandle)(nil)
	_ Pinger     = (*SQLHandle)(nil)
	_ Closer     = (*SQLHandle)(nil)
)

// NewSQLHandle wraps a connection taken from a *sql.DB.
func NewSQLHandle(conn *sql.Conn) *SQLHandle {
	return &SQLHandle{
		conn: conn,
		beginTx: func(ctx context.Context, opts *sql.TxOptions) (sqlTx, error) {
			tx, err := conn.BeginTx(ctx, opts)
			if err != nil {
				return nil, err
			}
			return tx, nil
		},
		opts: DefaultTxOptions(),
	}
}

// NewBunHandle wraps a connection taken from a *bun.DB. Statements run
// through the bun query hooks registered on that DB.
func NewBunHandle(conn bun.Conn) *SQLHandle {
	return &SQLHandle{
		conn: conn,
		beginTx: func(ctx context.Context, opts *sql.TxOptions) (sqlTx, error) {
			tx, err := conn.BeginTx(ctx, opts)
			if err != nil {
				return nil, err
			}
			return tx, nil
		},
		opts: DefaultTxOptions(),
	}
}

// WithTxOptions sets the options used by Begin
func (h *SQLHandle) WithTxOptions(opts TxOptions) *SQLHandle {
	h.opts = opts
	return h
}

// OnClose registers a function run after the connection is closed,
// typically closing the owning *sql.DB.
func (h *SQLHandle) OnClose(fn func() error) *SQLHandle {
	h.onClose = fn
	return h
}

// InTransaction reports whether a physical transaction is open
func (h *SQLHandle) InTransaction() bool {
	return h.tx != nil
}

// Begin opens a physical transaction. It is a no-op if one is already open.
func (h *SQLHandle) Begin(ctx context.Context) error {
	if h.tx != nil {
		return nil
	}
	tx, err := h.beginTx(ctx, &sql.TxOptions{
		Isolation: h.opts.Isolation,
		ReadOnly:  h.opts.ReadOnly,
	})
	if err != nil {
		return err
	}
	h.tx = tx
	return nil
}

// Commit commits the open transaction. Without one it is a no-op, as every
// statement has already been committed.
//
// database/sql gives up on a *sql.Tx whose commit failed, but the server
// may keep the transaction open on this connection (SQLite does for
// deferred constraint violations). A failed commit therefore sends a raw
// ROLLBACK and leaves the handle aborted: statements and further commits
// fail until Rollback is called.
func (h *SQLHandle) Commit(ctx context.Context) error {
	if h.aborted != nil {
		return h.abortedError("Commit")
	}
	if h.tx == nil {
		return nil
	}
	tx := h.tx
	h.tx = nil
	if err := tx.Commit(); err != nil {
		// Fails harmlessly when the server already ended the transaction.
		_, _ = h.conn.ExecContext(ctx, "ROLLBACK")
		h.aborted = err
		return err
	}
	return nil
}

// Rollback aborts the open transaction and clears a failed commit
func (h *SQLHandle) Rollback(ctx context.Context) error {
	h.aborted = nil
	if h.tx == nil {
		return nil
	}
	tx := h.tx
	h.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (h *SQLHandle) abortedError(op string) *Error {
	return &Error{
		Code:    CodeTransaction,
		Message: "transaction was rolled back after a failed commit, call Rollback first",
		Op:      op,
		Cause:   h.aborted,
	}
}

// Query runs a statement and fetches every row
func (h *SQLHandle) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	if h.aborted != nil {
		return nil, h.abortedError("Query")
	}
	rows, err := h.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// Exec runs a statement and returns the affected row count
func (h *SQLHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if h.aborted != nil {
		return 0, h.abortedError("Exec")
	}
	result, err := h.executor().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// Ping verifies the connection is alive
func (h *SQLHandle) Ping(ctx context.Context) error {
	return h.conn.PingContext(ctx)
}

// Close rolls back any open transaction and closes the connection
func (h *SQLHandle) Close() error {
	h.aborted = nil
	var errs []error
	if h.tx != nil {
		if err := h.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		h.tx = nil
	}
	if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	if h.onClose != nil {
		errs = append(errs, h.onClose())
	}
	return errors.Join(errs...)
}

func (h *SQLHandle) executor() bun.IConn {
	if h.tx != nil {
		return h.tx
	}
	return h.conn
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
