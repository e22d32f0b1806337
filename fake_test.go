package dbconn

import (
	"context"
	"errors"
)

// fakeHandle is a scripted Handle recording every call.
type fakeHandle struct {
	name        string
	rows        []Row
	affected    int64
	failures    []error // returned by the next Query/Exec calls, in order
	commitErr   error
	rollbackErr error

	queries   []string
	args      [][]any
	commits   int
	rollbacks int
	closed    bool
}

func newFakeHandle(name string) *fakeHandle {
	return &fakeHandle{name: name}
}

func (f *fakeHandle) nextFailure() error {
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeHandle) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	if err := f.nextFailure(); err != nil {
		return nil, err
	}
	return f.rows, nil
}

func (f *fakeHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	if err := f.nextFailure(); err != nil {
		return 0, err
	}
	return f.affected, nil
}

func (f *fakeHandle) Commit(ctx context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeHandle) Rollback(ctx context.Context) error {
	f.rollbacks++
	return f.rollbackErr
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

func (f *fakeHandle) calls() int {
	return len(f.queries)
}

// beginningHandle is a fakeHandle that needs an explicit BEGIN.
type beginningHandle struct {
	*fakeHandle
	begins   int
	beginErr error
}

func (b *beginningHandle) Begin(ctx context.Context) error {
	b.begins++
	return b.beginErr
}

// pingHandle is a fakeHandle implementing Pinger.
type pingHandle struct {
	*fakeHandle
	pings   int
	pingErr error
}

func (p *pingHandle) Ping(ctx context.Context) error {
	p.pings++
	return p.pingErr
}

// countingReconnector installs handle (when not nil) and counts calls.
type countingReconnector struct {
	calls  int
	handle Handle
	err    error
}

func (r *countingReconnector) reconnect(ctx context.Context, c *Connection) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	if r.handle != nil {
		return c.SetWriteHandle(r.handle)
	}
	return nil
}

var (
	errGoneAway    = errors.New("SQLSTATE[HY000]: General error: 2006 MySQL server has gone away")
	errSyntax      = errors.New(`syntax error at or near "SELEC"`)
	errNoServer    = errors.New("could not send data: no connection to the server")
	errCommitFails = errors.New("could not commit: disk full")
)

func newTestConnection(write Handle) *Connection {
	return New(write, Config{Name: "test"})
}
