package hooks

import (
	"strings"
	"unicode/utf8"
)

// maxQueryLen bounds statements written to logs and span attributes.
const maxQueryLen = 500

// OperationType extracts the operation type from a query
func OperationType(query string) string {
	query = strings.TrimSpace(strings.ToUpper(query))
	switch {
	case strings.HasPrefix(query, "SELECT"), strings.HasPrefix(query, "WITH"):
		return "select"
	case strings.HasPrefix(query, "INSERT"):
		return "insert"
	case strings.HasPrefix(query, "UPDATE"):
		return "update"
	case strings.HasPrefix(query, "DELETE"):
		return "delete"
	case strings.HasPrefix(query, "CREATE"):
		return "create"
	case strings.HasPrefix(query, "DROP"):
		return "drop"
	case strings.HasPrefix(query, "ALTER"):
		return "alter"
	case strings.HasPrefix(query, "BEGIN"):
		return "begin"
	case strings.HasPrefix(query, "COMMIT"):
		return "commit"
	case strings.HasPrefix(query, "ROLLBACK"):
		return "rollback"
	default:
		return "other"
	}
}

// truncate cuts query to at most maxQueryLen bytes on a rune boundary.
func truncate(query string) string {
	if len(query) <= maxQueryLen {
		return query
	}
	n := maxQueryLen
	for n > 0 && !utf8.RuneStart(query[n]) {
		n--
	}
	return query[:n] + "..."
}
