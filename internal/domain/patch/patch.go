// Package patch builds partial-update SET clauses from an allow-list.
package patch

import (
	"fmt"
	"strings"
)

// BuildUpdateClause turns the supplied fields into a SET clause and its
// positional arguments, keeping only allow-listed columns. startIndex is the
// first placeholder number ($1 is usually the row id).
func BuildUpdateClause(fields map[string]any, allowed []string, startIndex int) (string, []any) {
	sets := make([]string, 0, len(allowed))
	values := make([]any, 0, len(allowed))
	index := startIndex

	for _, field := range allowed {
		value, ok := fields[field]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", field, index))
		values = append(values, value)
		index++
	}

	return strings.Join(sets, ", "), values
}
