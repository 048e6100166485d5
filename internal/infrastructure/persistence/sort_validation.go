package persistence

import (
	"strings"
)

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// MediaFileSortFields contains allowed sort fields for media files
var MediaFileSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"filename":   true,
	"size":       true,
	"width":      true,
	"height":     true,
}
