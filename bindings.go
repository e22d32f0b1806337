package dbconn

import (
	"database/sql"
	"slices"
)

// NormalizeBindings converts caller bindings into the ordered argument list
// handed to a Handle. nil becomes an empty list, a lone map[string]any becomes
// sql.NamedArg values ordered by name and a lone []any is flattened.
func NormalizeBindings(bindings []any) []any {
	if len(bindings) == 1 {
		switch b := bindings[0].(type) {
		case map[string]any:
			return namedBindings(b)
		case []any:
			return NormalizeBindings(b)
		case nil:
			return []any{nil}
		}
	}

	out := make([]any, len(bindings))
	copy(out, bindings)
	return out
}

func namedBindings(m map[string]any) []any {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		out = append(out, sql.Named(name, m[name]))
	}
	return out
}
