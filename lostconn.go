package dbconn

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
)

// DefaultLostConnectionMessages returns the driver message fragments that
// mark a dropped server-side session. Matching is case-sensitive.
func DefaultLostConnectionMessages() []string {
	return []string{
		"server has gone away",
		"no connection to the server",
		"Lost Connection",
		"Lost connection",
		"server closed the connection unexpectedly",
		"SSL connection has been closed unexpectedly",
		"connection reset by peer",
		"broken pipe",
		"connection is already closed",
		"bad connection",
	}
}

// IsLostConnection reports whether err indicates a dropped connection,
// using DefaultLostConnectionMessages.
func IsLostConnection(err error) bool {
	return isLostConnection(err, DefaultLostConnectionMessages())
}

func isLostConnection(err error, messages []string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	if pgErr, ok := asPgError(err); ok && strings.HasPrefix(pgErr.Code, "08") {
		return true
	}

	// A QueryError's own message embeds the SQL text; match on the cause only.
	var qe *QueryError
	if errors.As(err, &qe) {
		if qe.Cause == nil {
			return false
		}
		err = qe.Cause
	}

	msg := err.Error()
	for _, s := range messages {
		if s != "" && strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
