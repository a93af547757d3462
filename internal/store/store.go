package store

import "strings"

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// repeatPlaceholder returns n copies of ", ?" for building IN clauses.
func repeatPlaceholder(n int) string {
	return strings.Repeat(", ?", n)
}
