package dbconn

import (
	"math"
	"unicode/utf8"
)

// truncateSQL truncates SQL for error messages and log lines without
// splitting a multi-byte character.
func truncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen {
		return sql
	}
	n := maxLen
	for n > 0 && !utf8.RuneStart(sql[n]) {
		n--
	}
	return sql[:n] + "..."
}

// roundMillis rounds a millisecond duration to two decimal places.
func roundMillis(ms float64) float64 {
	return math.Round(ms*100) / 100
}
