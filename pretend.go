package dbconn

import "github.com/fernandezvara/dbconn/hooks"

// Pretend runs fn in dry-run mode: statements are logged but never reach a
// handle, reads return no rows and writes report success. The statements
// that would have run are returned. Pretend and logging state are restored
// when fn returns or panics.
func (c *Connection) Pretend(fn func(c *Connection) error) ([]hooks.QueryEvent, error) {
	loggingQueries := c.loggingQueries
	mark := len(c.queryLog)

	c.EnableQueryLog()
	c.pretending = true

	defer func() {
		c.pretending = false
		c.loggingQueries = loggingQueries
	}()

	err := fn(c)

	var pretended []hooks.QueryEvent
	if len(c.queryLog) > mark {
		pretended = make([]hooks.QueryEvent, len(c.queryLog)-mark)
		copy(pretended, c.queryLog[mark:])
	}
	return pretended, err
}

// Pretending reports whether the connection is in dry-run mode.
func (c *Connection) Pretending() bool {
	return c.pretending
}

// EnableQueryLog starts recording statements and notifying listeners.
func (c *Connection) EnableQueryLog() {
	c.loggingQueries = true
}

// DisableQueryLog stops recording statements.
func (c *Connection) DisableQueryLog() {
	c.loggingQueries = false
}

// Logging reports whether the query log is enabled.
func (c *Connection) Logging() bool {
	return c.loggingQueries
}

// QueryLog returns a copy of the recorded statements.
func (c *Connection) QueryLog() []hooks.QueryEvent {
	out := make([]hooks.QueryEvent, len(c.queryLog))
	copy(out, c.queryLog)
	return out
}

// FlushQueryLog clears the recorded statements.
func (c *Connection) FlushQueryLog() {
	c.queryLog = nil
}

// Listen registers a listener notified of every logged statement.
func (c *Connection) Listen(l hooks.QueryListener) {
	c.listeners = append(c.listeners, l)
}
