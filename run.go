package dbconn

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbconn/hooks"
)

// strategy executes one attempt of a statement against a handle.
type strategy func(ctx context.Context, query string, bindings []any) (Result, error)

// Run executes query with the strategy selected by kind. It is the single
// entry point used by the query building layer.
//
// A statement whose failure looks like a lost connection is retried once
// after Reconnect; every other failure is returned as a *QueryError.
//
// Unknown kinds, and bindings passed with KindUnprepared, are rejected with
// a configuration error before anything runs or is logged.
func (c *Connection) Run(ctx context.Context, query string, bindings []any, kind Kind) (Result, error) {
	switch kind {
	case KindSelect, KindStatement, KindAffectingStatement:
	case KindUnprepared:
		if len(NormalizeBindings(bindings)) > 0 {
			return Result{}, &Error{
				Code:    CodeConfiguration,
				Message: "unprepared statements take no bindings",
				Op:      "Run",
			}
		}
	default:
		return Result{}, &Error{
			Code:    CodeConfiguration,
			Message: fmt.Sprintf("unknown statement kind %d", int(kind)),
			Op:      "Run",
		}
	}
	return c.run(ctx, query, bindings, c.strategyFor(kind, true))
}

// Select runs a read query, on the read handle outside transactions.
func (c *Connection) Select(ctx context.Context, query string, bindings ...any) ([]Row, error) {
	res, err := c.run(ctx, query, bindings, c.selectStrategy(true))
	return res.Rows, err
}

// SelectFromWriteConnection runs a read query on the write handle.
func (c *Connection) SelectFromWriteConnection(ctx context.Context, query string, bindings ...any) ([]Row, error) {
	res, err := c.run(ctx, query, bindings, c.selectStrategy(false))
	return res.Rows, err
}

// SelectOne returns the first row of a read query, or nil when there is none.
func (c *Connection) SelectOne(ctx context.Context, query string, bindings ...any) (Row, error) {
	rows, err := c.Select(ctx, query, bindings...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Insert runs an insert statement
func (c *Connection) Insert(ctx context.Context, query string, bindings ...any) (bool, error) {
	return c.Statement(ctx, query, bindings...)
}

// Update runs an update statement and returns the affected row count
func (c *Connection) Update(ctx context.Context, query string, bindings ...any) (int64, error) {
	return c.AffectingStatement(ctx, query, bindings...)
}

// Delete runs a delete statement and returns the affected row count
func (c *Connection) Delete(ctx context.Context, query string, bindings ...any) (int64, error) {
	return c.AffectingStatement(ctx, query, bindings...)
}

// Statement runs a statement on the write handle
func (c *Connection) Statement(ctx context.Context, query string, bindings ...any) (bool, error) {
	res, err := c.run(ctx, query, bindings, c.strategyFor(KindStatement, false))
	return res.OK, err
}

// AffectingStatement runs a statement on the write handle and returns the affected row count
func (c *Connection) AffectingStatement(ctx context.Context, query string, bindings ...any) (int64, error) {
	res, err := c.run(ctx, query, bindings, c.strategyFor(KindAffectingStatement, false))
	return res.RowsAffected, err
}

// Unprepared runs a raw statement without bindings on the write handle
func (c *Connection) Unprepared(ctx context.Context, query string) (bool, error) {
	res, err := c.run(ctx, query, nil, c.strategyFor(KindUnprepared, false))
	return res.OK, err
}

func (c *Connection) run(ctx context.Context, query string, bindings []any, fn strategy) (Result, error) {
	if err := c.reconnectIfMissing(ctx); err != nil {
		return Result{}, err
	}

	start := time.Now()
	bindings = NormalizeBindings(bindings)

	result, err := c.runQuery(ctx, query, bindings, fn)
	if qe, ok := err.(*QueryError); ok {
		result, err = c.tryAgainIfCausedByLostConnection(ctx, qe, query, bindings, fn)
	}

	elapsed := roundMillis(float64(time.Since(start)) / float64(time.Millisecond))
	c.logQuery(ctx, query, bindings, elapsed, err)

	return result, err
}

// runQuery executes one attempt, translating driver errors into *QueryError.
func (c *Connection) runQuery(ctx context.Context, query string, bindings []any, fn strategy) (Result, error) {
	result, err := fn(ctx, query, bindings)
	if err == nil {
		return result, nil
	}

	switch err.(type) {
	case *Error, *QueryError:
		return Result{}, err
	}

	return Result{}, newQueryError(query, bindings, err, c.causedByLostConnection(err))
}

func (c *Connection) tryAgainIfCausedByLostConnection(ctx context.Context, qe *QueryError, query string, bindings []any, fn strategy) (Result, error) {
	if !c.causedByLostConnection(qe) {
		return Result{}, qe
	}

	if err := c.Reconnect(ctx); err != nil {
		return Result{}, err
	}

	return c.runQuery(ctx, query, bindings, fn)
}

func (c *Connection) causedByLostConnection(err error) bool {
	return isLostConnection(err, c.lostMessages)
}

func (c *Connection) strategyFor(kind Kind, useReadHandle bool) strategy {
	switch kind {
	case KindSelect:
		return c.selectStrategy(useReadHandle)
	case KindAffectingStatement:
		return func(ctx context.Context, query string, bindings []any) (Result, error) {
			if c.pretending {
				return Result{Kind: kind, OK: true}, nil
			}
			h, err := c.WriteHandle(ctx)
			if err != nil {
				return Result{}, err
			}
			n, err := h.Exec(ctx, query, bindings...)
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: kind, OK: true, RowsAffected: n}, nil
		}
	case KindUnprepared:
		return func(ctx context.Context, query string, _ []any) (Result, error) {
			if c.pretending {
				return Result{Kind: kind, OK: true}, nil
			}
			h, err := c.WriteHandle(ctx)
			if err != nil {
				return Result{}, err
			}
			if _, err := h.Exec(ctx, query); err != nil {
				return Result{}, err
			}
			return Result{Kind: kind, OK: true}, nil
		}
	default: // KindStatement
		return func(ctx context.Context, query string, bindings []any) (Result, error) {
			if c.pretending {
				return Result{Kind: KindStatement, OK: true}, nil
			}
			h, err := c.WriteHandle(ctx)
			if err != nil {
				return Result{}, err
			}
			if _, err := h.Exec(ctx, query, bindings...); err != nil {
				return Result{}, err
			}
			return Result{Kind: KindStatement, OK: true}, nil
		}
	}
}

func (c *Connection) selectStrategy(useReadHandle bool) strategy {
	return func(ctx context.Context, query string, bindings []any) (Result, error) {
		if c.pretending {
			return Result{Kind: KindSelect, Rows: []Row{}}, nil
		}

		var (
			h   Handle
			err error
		)
		if useReadHandle {
			h, err = c.ReadHandle(ctx)
		} else {
			h, err = c.WriteHandle(ctx)
		}
		if err != nil {
			return Result{}, err
		}

		rows, err := h.Query(ctx, query, bindings...)
		if err != nil {
			return Result{}, err
		}
		if rows == nil {
			rows = []Row{}
		}
		return Result{Kind: KindSelect, Rows: rows}, nil
	}
}

// logQuery records a finished statement while query logging is enabled.
func (c *Connection) logQuery(ctx context.Context, query string, bindings []any, elapsed float64, err error) {
	if !c.loggingQueries {
		return
	}

	event := hooks.QueryEvent{
		Connection: c.config.Name,
		Query:      query,
		Bindings:   bindings,
		Time:       elapsed,
		Err:        err,
		Pretend:    c.pretending,
	}

	c.queryLog = append(c.queryLog, event)
	for _, l := range c.listeners {
		l.OnQuery(ctx, event)
	}
}
