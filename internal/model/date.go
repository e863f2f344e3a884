package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used in storage and on the wire.
const DateLayout = "2006-01-02"

// Day returns the calendar date of t (in t's location) as midnight UTC.
// All day values handled by stores and analytics are normalized this way
// so that consecutive days are exactly 24h apart.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
