// Package strings provides string helpers shared by plan loading and search.
package strings

import (
	"strings"
)

// DedupeFold trims each value, drops empties and removes case-insensitive
// duplicates. The first spelling seen is kept and order is preserved.
//
// Example:
//
//	DedupeFold([]string{" Bone Profile -1", "bone profile -1", ""})
//	// Returns: []string{"Bone Profile -1"}
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// FirstWordLower returns the lower-cased first whitespace-separated word of s,
// or "" when s is blank.
func FirstWordLower(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
