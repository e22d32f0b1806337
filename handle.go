package dbconn

import "context"

// Handle is one open connection to the data store, write (primary) or
// read (replica). Errors returned by a Handle are driver errors; the
// connection wraps them into *QueryError.
type Handle interface {
	// Query runs a statement and fetches every row.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Exec runs a statement and reports the affected row count.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Commit commits the handle's current physical transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the handle's current physical transaction.
	Rollback(ctx context.Context) error
}

// TxBeginner is implemented by handles that need an explicit physical
// BEGIN when the outermost logical transaction starts.
type TxBeginner interface {
	Begin(ctx context.Context) error
}

// Pinger is implemented by handles that can verify liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by handles owning resources.
type Closer interface {
	Close() error
}

// Row is a fetched record keyed by column name.
type Row map[string]any

// Kind selects an execution strategy.
type Kind int

const (
	// KindSelect reads rows, from the read handle unless a transaction is active.
	KindSelect Kind = iota
	// KindStatement runs a statement on the write handle and reports success.
	KindStatement
	// KindAffectingStatement runs a statement on the write handle and reports the affected row count.
	KindAffectingStatement
	// KindUnprepared runs a statement without bindings on the write handle.
	KindUnprepared
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindStatement:
		return "statement"
	case KindAffectingStatement:
		return "affecting_statement"
	case KindUnprepared:
		return "unprepared"
	}
	return "unknown"
}

// Result is the outcome of Run. Which fields are meaningful depends on Kind:
// Rows for KindSelect, RowsAffected for KindAffectingStatement, OK for the rest.
type Result struct {
	Kind         Kind
	Rows         []Row
	OK           bool
	RowsAffected int64
}
