/*
Package dbconn provides a resilient database connection manager.

A Connection wraps a write handle and an optional read handle with:
  - Read/write routing (reads go to the write handle inside transactions)
  - Nested transaction bookkeeping collapsed into one physical transaction
  - Reconnect and retry once when a statement fails with a lost connection
  - Pretend (dry-run) mode that logs statements without running them
  - Rich error handling with PostgreSQL error parsing
  - Configurable observability (query listeners, logging, metrics, tracing)

# Basic Usage

	cfg := dbconn.DefaultConfig(os.Getenv("DATABASE_URL")).
	    WithReadURL(os.Getenv("DATABASE_REPLICA_URL"))
	cfg.Logger = slog.Default()
	cfg.LogSlowQueries = 100 * time.Millisecond

	conn, err := dbconn.Open(ctx, cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer conn.Close()

	rows, err := conn.Select(ctx, "SELECT id, email FROM users WHERE active = ?", true)
	n, err := conn.Update(ctx, "UPDATE users SET active = ? WHERE id = ?", false, id)

Any Handle implementation can be wrapped directly:

	conn := dbconn.New(handle, dbconn.Config{Name: "reports"})
	conn.SetReconnector(func(ctx context.Context, c *dbconn.Connection) error {
	    h, err := dialAgain(ctx)
	    if err != nil {
	        return err
	    }
	    return c.SetWriteHandle(h)
	})

# Transactions

Callback-based (auto commit/rollback):

	err := conn.Transaction(ctx, func(c *dbconn.Connection) error {
	    if _, err := c.Insert(ctx, "INSERT INTO users (email) VALUES (?)", email); err != nil {
	        return err // rollback
	    }
	    return nil // commit
	})

Manual control:

	if err := conn.BeginTransaction(ctx); err != nil {
	    return err
	}
	defer conn.Rollback(ctx)

	// ... operations ...

	return conn.Commit(ctx)

Nested calls only move the transaction level. The outermost Commit is the
only one reaching the database, and a nested Rollback does not undo the
nested work: it is discarded only if the outermost transaction rolls back.

	conn.BeginTransaction(ctx) // level 1, physical BEGIN
	conn.BeginTransaction(ctx) // level 2
	conn.Rollback(ctx)         // level 1, nothing undone yet
	conn.Commit(ctx)           // level 0, everything committed

# Lost Connections

A statement failing with a message in Config.LostConnectionMessages (by
default "server has gone away", "no connection to the server",
"Lost Connection" and similar) triggers Reconnect and runs once more. A
second failure is returned as is. Without a reconnector the first failure
surfaces as a configuration error.

# Pretend Mode

	queries, err := conn.Pretend(func(c *dbconn.Connection) error {
	    _, err := c.Statement(ctx, "DROP TABLE users")
	    return err
	})
	for _, q := range queries {
	    fmt.Println(q.Query, q.Bindings)
	}

# Error Handling

	if _, err := conn.Insert(ctx, query, args...); err != nil {
	    if dbconn.IsDuplicate(err) {
	        // Handle duplicate key
	    }

	    var qe *dbconn.QueryError
	    if errors.As(err, &qe) {
	        fmt.Println(qe.Code)       // DUPLICATE
	        fmt.Println(qe.Query)      // INSERT INTO users ...
	        fmt.Println(qe.Constraint) // users_email_key
	    }
	}
*/
package dbconn
