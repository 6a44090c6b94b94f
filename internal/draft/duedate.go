package draft

import (
	"strings"
	"time"

	"storepos/internal/domain"
)

// ParseDueDate accepts YYYY-MM-DD, meaning the last second of that day
// in UTC, or a full RFC 3339 timestamp.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.NewValidationError("dueDate", "Select a due date")
	}
	if day, err := time.Parse(time.DateOnly, raw); err == nil {
		return day.Add(24*time.Hour - time.Second).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError("dueDate", "Due date must be YYYY-MM-DD")
	}
	return ts.UTC(), nil
}
