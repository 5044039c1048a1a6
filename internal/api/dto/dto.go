// Package dto holds the HTTP request payloads and their mapping onto
// service inputs.
package dto

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseTime accepts RFC 3339, a local minute timestamp or a bare date.
// Empty input yields nil.
func ParseTime(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid "+field, map[string]any{field: value})
}
