package dbconn

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{CodeConfiguration, "CONFIGURATION"},
		{CodeState, "STATE"},
		{CodeDuplicate, "DUPLICATE"},
		{CodeConnectionFailed, "CONNECTION_FAILED"},
	}

	for _, tt := range tests {
		if string(tt.code) != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, tt.code)
		}
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{
			err:      &Error{Message: "test error"},
			expected: "dbconn: test error",
		},
		{
			err:      &Error{Op: "Reconnect", Message: "failed"},
			expected: "dbconn.Reconnect: failed",
		},
		{
			err:      &Error{Op: "Commit", Message: "transaction failed", Cause: errors.New("disk full")},
			expected: "dbconn.Commit: transaction failed: disk full",
		},
	}

	for _, tt := range tests {
		if tt.err.Error() != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, tt.err.Error())
		}
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		err    error
		target error
		match  bool
	}{
		{&Error{Code: CodeConfiguration}, ErrConfiguration, true},
		{&Error{Code: CodeState}, ErrState, true},
		{&Error{Code: CodeTransaction}, ErrTransaction, true},
		{&Error{Code: CodeState}, ErrConfiguration, false},
		{&Error{Code: CodeUnknown}, ErrState, false},
		{&QueryError{Code: CodeDuplicate}, ErrDuplicate, true},
		{&QueryError{Code: CodeDeadlock}, ErrDeadlock, true},
		{&QueryError{Code: CodeForeignKey}, ErrDuplicate, false},
		{ErrNoTransaction, ErrTransaction, true},
	}

	for _, tt := range tests {
		if errors.Is(tt.err, tt.target) != tt.match {
			t.Errorf("expected Is(%v, %v) = %v", tt.err, tt.target, tt.match)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")

	err := &Error{Code: CodeUnknown, Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("expected *Error to unwrap to its cause")
	}

	qe := &QueryError{Code: CodeUnknown, Cause: cause}
	if !errors.Is(qe, cause) {
		t.Error("expected *QueryError to unwrap to its cause")
	}
}

func TestQueryError_Error(t *testing.T) {
	qe := &QueryError{
		Query:      "INSERT INTO users (email) VALUES ($1)",
		Constraint: "users_email_key",
		Cause:      errors.New("duplicate key value"),
	}

	expected := "dbconn: duplicate key value (SQL: INSERT INTO users (email) VALUES ($1)) (constraint: users_email_key)"
	if qe.Error() != expected {
		t.Errorf("expected %s, got %s", expected, qe.Error())
	}

	long := &QueryError{Query: strings.Repeat("x", 600)}
	if !strings.HasSuffix(long.Error(), "...)") {
		t.Errorf("expected long SQL to be truncated, got %d chars", len(long.Error()))
	}
}

func TestNewQueryError_PostgreSQL(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected ErrorCode
	}{
		{"unique", "23505", CodeDuplicate},
		{"foreign key", "23503", CodeForeignKey},
		{"not null", "23502", CodeNotNullViolation},
		{"check", "23514", CodeCheckViolation},
		{"serialization", "40001", CodeSerialization},
		{"deadlock", "40P01", CodeDeadlock},
		{"canceled", "57014", CodeTimeout},
		{"connection exception", "08006", CodeConnectionFailed},
		{"syntax", "42601", CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{
				Code:           tt.code,
				Message:        "boom",
				TableName:      "users",
				ColumnName:     "email",
				ConstraintName: "users_email_key",
				Detail:         "Key (email)=(a@example.com) already exists.",
				Hint:           "try another",
			}
			qe := newQueryError("INSERT INTO users (email) VALUES ($1)", []any{"a@example.com"}, pgErr, false)

			if qe.Code != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, qe.Code)
			}
			if qe.Table != "users" || qe.Column != "email" {
				t.Errorf("expected table users column email, got %s %s", qe.Table, qe.Column)
			}
			if qe.Detail == "" || qe.Hint != "try another" {
				t.Errorf("expected detail and hint, got %q %q", qe.Detail, qe.Hint)
			}
			if !errors.Is(qe, pgErr) {
				t.Error("expected the driver error to be preserved")
			}
		})
	}
}

func TestNewQueryError_Lost(t *testing.T) {
	qe := newQueryError("SELECT 1", nil, errGoneAway, true)
	if qe.Code != CodeConnectionFailed {
		t.Errorf("expected CodeConnectionFailed, got %s", qe.Code)
	}
	if !IsConnection(qe) {
		t.Error("expected connection error")
	}

	qe = newQueryError("SELECT 1", nil, errSyntax, false)
	if qe.Code != CodeUnknown {
		t.Errorf("expected CodeUnknown, got %s", qe.Code)
	}
}

func TestWrapTxError(t *testing.T) {
	if wrapTxError(nil, "Commit") != nil {
		t.Error("expected nil for nil error")
	}

	err := wrapTxError(errCommitFails, "Commit")
	var dbErr *Error
	if !errors.As(err, &dbErr) {
		t.Fatal("expected *Error")
	}
	if dbErr.Op != "Commit" || dbErr.Code != CodeTransaction {
		t.Errorf("unexpected wrap: %+v", dbErr)
	}

	state := stateError("Reconnect", "can't reconnect while within transaction")
	if wrapTxError(state, "Begin") != error(state) {
		t.Error("package errors should pass through unchanged")
	}
}

func TestErrorHelpers(t *testing.T) {
	dup := &QueryError{Code: CodeDuplicate, Table: "users", Constraint: "users_email_key"}
	fk := &QueryError{Code: CodeForeignKey}
	ser := &QueryError{Code: CodeSerialization}
	timeout := &QueryError{Code: CodeTimeout}
	conf := &Error{Code: CodeConfiguration}

	if !IsDuplicate(dup) || IsDuplicate(fk) {
		t.Error("IsDuplicate mismatch")
	}
	if !IsForeignKey(fk) {
		t.Error("IsForeignKey mismatch")
	}
	if !IsRetryable(ser) || IsRetryable(dup) {
		t.Error("IsRetryable mismatch")
	}
	if !IsTimeout(timeout) {
		t.Error("IsTimeout mismatch")
	}
	if !IsConfiguration(conf) || IsState(conf) {
		t.Error("IsConfiguration mismatch")
	}
	if !IsQueryError(dup) || IsQueryError(conf) {
		t.Error("IsQueryError mismatch")
	}

	if code, ok := GetErrorCode(dup); !ok || code != CodeDuplicate {
		t.Errorf("expected DUPLICATE, got %s", code)
	}
	if code, ok := GetErrorCode(conf); !ok || code != CodeConfiguration {
		t.Errorf("expected CONFIGURATION, got %s", code)
	}
	if _, ok := GetErrorCode(errors.New("plain")); ok {
		t.Error("plain errors have no code")
	}

	if c, ok := GetConstraint(dup); !ok || c != "users_email_key" {
		t.Errorf("expected users_email_key, got %s", c)
	}
	if _, ok := GetConstraint(fk); ok {
		t.Error("expected no constraint")
	}
	if tbl, ok := GetTable(dup); !ok || tbl != "users" {
		t.Errorf("expected users, got %s", tbl)
	}
}
