// Package calendar implements the service-calendar activation model and the
// change-point window scanner over a date horizon.
package calendar

import "time"

// DateLayout is the 8-digit GTFS date form.
const DateLayout = "20060102"

// ParseDate parses a YYYYMMDD string. Malformed or empty values return
// ok=false; callers treat those dates as "matches nothing".
func ParseDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a date as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight truncates a timestamp to its civil date in UTC, the form every
// date in this package is normalized to.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekdayIndex maps a date to the Monday-first ordinal used by weekday
// masks (Monday = 0 ... Sunday = 6).
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
