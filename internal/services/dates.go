package services

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateTimeLayout is the canonical timestamp format used in responses and
// notification templates.
const DateTimeLayout = "2006-01-02 15:04:05"

// NormalizeDate coerces an arbitrary date string into a usable timestamp.
// Empty or unparseable input falls back to the current time so a license
// always carries a valid start date. The second return value is false when
// the fallback fired, letting callers attach a validation warning instead
// of silently absorbing an operator typo.
func NormalizeDate(input string) (time.Time, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Now(), false
	}

	t, err := dateparse.ParseLocal(input)
	if err != nil {
		return time.Now(), false
	}
	return t, true
}

// FormatDateTime renders a timestamp in the canonical layout
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// FormatDateTimePtr renders a nullable timestamp, empty string for nil
func FormatDateTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateTimeLayout)
}
