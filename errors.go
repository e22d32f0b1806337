package dbconn

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrorCode represents a database error classification
type ErrorCode string

const (
	CodeConfiguration    ErrorCode = "CONFIGURATION"
	CodeState            ErrorCode = "STATE"
	CodeTransaction      ErrorCode = "TRANSACTION"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeForeignKey       ErrorCode = "FOREIGN_KEY"
	CodeCheckViolation   ErrorCode = "CHECK_VIOLATION"
	CodeNotNullViolation ErrorCode = "NOT_NULL"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeSerialization    ErrorCode = "SERIALIZATION"
	CodeDeadlock         ErrorCode = "DEADLOCK"
	CodeUnknown          ErrorCode = "UNKNOWN"
)

// Sentinel errors for quick checks
var (
	ErrConfiguration    = errors.New("dbconn: configuration error")
	ErrState            = errors.New("dbconn: invalid connection state")
	ErrTransaction      = errors.New("dbconn: transaction error")
	ErrDuplicate        = errors.New("dbconn: duplicate key violation")
	ErrForeignKey       = errors.New("dbconn: foreign key violation")
	ErrCheckViolation   = errors.New("dbconn: check constraint violation")
	ErrNotNullViolation = errors.New("dbconn: not null violation")
	ErrConnection       = errors.New("dbconn: connection failed")
	ErrTimeout          = errors.New("dbconn: operation timeout")
	ErrSerialization    = errors.New("dbconn: serialization failure")
	ErrDeadlock         = errors.New("dbconn: deadlock detected")
)

// ErrNoTransaction is returned by Commit when no transaction is active.
var ErrNoTransaction = &Error{
	Code:    CodeTransaction,
	Message: "no active transaction",
	Op:      "Commit",
}

// Error is a connection-level error raised by this package itself
// (missing reconnector, illegal handle swap, transaction misuse).
type Error struct {
	Code    ErrorCode // Error classification
	Message string    // Human-readable message
	Op      string    // Operation that failed (e.g., "Reconnect", "SetWriteHandle")
	Cause   error     // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("dbconn: %s", e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("dbconn.%s: %s", e.Op, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching
func (e *Error) Is(target error) bool {
	return codeIs(e.Code, target)
}

// QueryError wraps a driver failure raised while executing a statement.
type QueryError struct {
	Code       ErrorCode // Error classification
	Query      string    // Statement that failed
	Bindings   []any     // Normalized bindings the statement ran with
	Table      string    // Table name if known
	Column     string    // Column name if known
	Constraint string    // Constraint name if applicable
	Detail     string    // Additional detail from PostgreSQL
	Hint       string    // Hint from PostgreSQL
	Cause      error     // Underlying driver error
}

func (e *QueryError) Error() string {
	msg := "dbconn: query failed"
	if e.Cause != nil {
		msg = "dbconn: " + e.Cause.Error()
	}
	msg += fmt.Sprintf(" (SQL: %s)", truncateSQL(e.Query, 500))
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (constraint: %s)", e.Constraint)
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching
func (e *QueryError) Is(target error) bool {
	return codeIs(e.Code, target)
}

func codeIs(code ErrorCode, target error) bool {
	switch code {
	case CodeConfiguration:
		return target == ErrConfiguration
	case CodeState:
		return target == ErrState
	case CodeTransaction:
		return target == ErrTransaction
	case CodeDuplicate:
		return target == ErrDuplicate
	case CodeForeignKey:
		return target == ErrForeignKey
	case CodeCheckViolation:
		return target == ErrCheckViolation
	case CodeNotNullViolation:
		return target == ErrNotNullViolation
	case CodeConnectionFailed:
		return target == ErrConnection
	case CodeTimeout:
		return target == ErrTimeout
	case CodeSerialization:
		return target == ErrSerialization
	case CodeDeadlock:
		return target == ErrDeadlock
	}
	return false
}

// newQueryError classifies a driver error raised by query.
func newQueryError(query string, bindings []any, err error, lost bool) *QueryError {
	qe := &QueryError{
		Code:     CodeUnknown,
		Query:    query,
		Bindings: bindings,
		Cause:    err,
	}

	if pgErr, ok := asPgError(err); ok {
		qe.Code = pgErrorCode(pgErr)
		qe.Table = pgErr.TableName
		qe.Column = pgErr.ColumnName
		qe.Constraint = pgErr.ConstraintName
		qe.Detail = pgErr.Detail
		qe.Hint = pgErr.Hint
	}

	if lost {
		qe.Code = CodeConnectionFailed
	}

	return qe
}

// asPgError extracts the server error fields reported by either
// PostgreSQL driver (pgx or bun's pgdriver).
func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}

	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return &pgconn.PgError{
			Severity:       drvErr.Field('S'),
			Code:           drvErr.Field('C'),
			Message:        drvErr.Field('M'),
			Detail:         drvErr.Field('D'),
			Hint:           drvErr.Field('H'),
			TableName:      drvErr.Field('t'),
			ColumnName:     drvErr.Field('c'),
			ConstraintName: drvErr.Field('n'),
		}, true
	}

	return nil, false
}

// pgErrorCode maps PostgreSQL error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
func pgErrorCode(pgErr *pgconn.PgError) ErrorCode {
	switch pgErr.Code {
	case "23505": // unique_violation
		return CodeDuplicate
	case "23503": // foreign_key_violation
		return CodeForeignKey
	case "23502": // not_null_violation
		return CodeNotNullViolation
	case "23514": // check_violation
		return CodeCheckViolation
	case "40001": // serialization_failure
		return CodeSerialization
	case "40P01": // deadlock_detected
		return CodeDeadlock
	case "57014": // query_canceled (timeout)
		return CodeTimeout
	}
	if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" { // connection_exception class
		return CodeConnectionFailed
	}
	return CodeUnknown
}

// wrapTxError wraps a failed physical commit/rollback/begin.
func wrapTxError(err error, op string) error {
	if err == nil {
		return nil
	}

	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}

	return &Error{
		Code:    CodeTransaction,
		Message: "transaction failed",
		Op:      op,
		Cause:   err,
	}
}

func stateError(op, message string) *Error {
	return &Error{
		Code:    CodeState,
		Message: message,
		Op:      op,
	}
}

// IsConfiguration checks if error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsState checks if error is an illegal state error
func IsState(err error) bool {
	return errors.Is(err, ErrState)
}

// IsTransaction checks if error came from transaction bookkeeping or a physical commit/rollback
func IsTransaction(err error) bool {
	return errors.Is(err, ErrTransaction)
}

// IsQueryError checks if error wraps a failed statement
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// IsDuplicate checks if error is a duplicate key error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsForeignKey checks if error is a foreign key error
func IsForeignKey(err error) bool {
	return errors.Is(err, ErrForeignKey)
}

// IsConnection checks if error is a connection error
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsTimeout checks if error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the error is retryable (serialization, deadlock)
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrDeadlock)
}

// GetErrorCode extracts the error code if it's a dbconn error
func GetErrorCode(err error) (ErrorCode, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code, true
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code, true
	}
	return "", false
}

// GetConstraint extracts the constraint name if available
func GetConstraint(err error) (string, bool) {
	var qe *QueryError
	if errors.As(err, &qe) && qe.Constraint != "" {
		return qe.Constraint, true
	}
	return "", false
}

// GetTable extracts the table name if available
func GetTable(err error) (string, bool) {
	var qe *QueryError
	if errors.As(err, &qe) && qe.Table != "" {
		return qe.Table, true
	}
	return "", false
}
