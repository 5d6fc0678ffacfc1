package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate formats the calendar part of t
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current calendar date in UTC
func Today() time.Time {
	return TruncateDate(time.Now())
}

// TruncateDate drops the time of day, keeping the calendar date of t
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window returns the inclusive rolling window [end-days, end]
func Window(end time.Time, days int) (time.Time, time.Time) {
	end = TruncateDate(end)
	return end.AddDate(0, 0, -days), end
}

// InWindow reports whether d falls inside [start, end], both ends inclusive
func InWindow(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
