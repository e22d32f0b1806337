package dbconn

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateSQL(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		maxLen   int
		expected string
	}{
		{"short", "SELECT 1", 10, "SELECT 1"},
		{"exact", "SELECT 1", 8, "SELECT 1"},
		{"ascii", "SELECT 1", 6, "SELECT..."},
		{"inside a character", "SELECT 'é'", 9, "SELECT '..."},
		{"inside a wide character", "名前名前", 4, "名..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateSQL(tt.sql, tt.maxLen)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result is not valid UTF-8: %q", got)
			}
		})
	}
}

func TestQueryError_ErrorKeepsUTF8(t *testing.T) {
	qe := &QueryError{Query: "SELECT '" + strings.Repeat("ü", 400) + "'"}
	if !utf8.ValidString(qe.Error()) {
		t.Error("error message should be valid UTF-8")
	}
}

func TestRoundMillis(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{1.234, 1.23},
		{1.235001, 1.24},
		{0, 0},
		{12, 12},
	}

	for _, tt := range tests {
		if got := roundMillis(tt.in); got != tt.expected {
			t.Errorf("roundMillis(%v) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}
