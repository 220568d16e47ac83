package domain

import (
	"fmt"
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day and no timezone, e.g. "2026-03-15".
// Sessions happen on a studio calendar day, so dates are kept as plain strings:
// (slotId, date) index keys stay timezone-agnostic and fixed-width strings
// compare lexicographically in date order.
type Date string

// ParseDate validates a YYYY-MM-DD string and returns it as a Date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Date(s), nil
}

// DateOf truncates an instant to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// Today returns the current calendar day in UTC.
func Today() Date {
	return DateOf(time.Now())
}

// Time returns the midnight-UTC instant of the date.
// An invalid or empty date returns the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Before reports whether d falls strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d falls strictly later than other.
func (d Date) After(other Date) bool { return d > other }

// AddDays returns the date n calendar days later; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysSince returns the number of whole calendar days from other up to d.
// Same day is 0, yesterday relative to d is 1, and so on.
func (d Date) DaysSince(other Date) int {
	return int(d.Time().Sub(other.Time()).Hours() / 24)
}

func (d Date) String() string { return string(d) }
