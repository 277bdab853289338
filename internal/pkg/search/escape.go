// Package search holds small helpers shared by the Postgres repositories'
// ILIKE-based keyword search.
package search

import (
	"strings"
	"time"
)

// DefaultSearchTimeout bounds a single multi-keyword search query so a
// pathological query pattern can't starve the connection pool.
const DefaultSearchTimeout = 5 * time.Second

// EscapeILIKE escapes ILIKE wildcard metacharacters in a user-supplied
// keyword so it can safely be wrapped in '%...%' and passed as a bind
// parameter.
func EscapeILIKE(keyword string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	).Replace(keyword)
	return "%" + escaped + "%"
}
