package util

import "time"

// DayKey is the calendar-day key used for daily progress rows.
func DayKey(t time.Time) string {
	return t.Format(DateFormat)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
