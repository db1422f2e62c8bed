package timeutils

import "time"

// RoundToHour returns t floored to the start of its hour, in t's own location.
func RoundToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// IsStale returns true if t is older than maxAge relative to now.
func IsStale(t, now time.Time, maxAge time.Duration) bool {
	if t.IsZero() {
		return true
	}
	return now.Sub(t) > maxAge
}
