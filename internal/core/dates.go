package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is how dates are persisted. The fixed width keeps lexical and
// chronological order identical, so range filters can use BETWEEN.
const DateLayout = "2006-01-02T15:04:05.000Z"

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// FormatStoredTime renders t in DateLayout (UTC).
func FormatStoredTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseStoredTime reads a persisted timestamp. SQLite's CURRENT_TIMESTAMP
// form is accepted too.
func ParseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, ErrInvalidDate)
}

// ParseDate accepts a bare date (YYYY-MM-DD) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, Invalid("date", ErrInvalidDate)
}

// MonthRange returns the first and last instant (millisecond precision) of
// the month containing t, in t's location.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// EndOfDay returns the last millisecond of t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// MonthLabel renders e.g. "March 2025".
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[t.Month()-1], t.Year())
}
