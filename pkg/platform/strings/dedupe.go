// Package strings holds small helpers for list-valued configuration.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops empties and repeats, keeping
// first-seen order. Comma-separated env lists such as broker addresses pass
// through it before use.
func DedupeAndTrim(values []string) []string {
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
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}
