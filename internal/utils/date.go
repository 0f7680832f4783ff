package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDueDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns the calendar date at midnight UTC.
func ParseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("due date is empty")
	}

	if d, err := time.Parse(DateLayout, value); err == nil {
		return d, nil
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: expected YYYY-MM-DD", value)
	}
	return TruncateToDate(ts), nil
}

// TruncateToDate drops the time of day, keeping the UTC calendar date.
func TruncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a due date in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
