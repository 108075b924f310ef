package utils

import "time"

// MonthKeyFormat is the yyyy-MM key used to bucket amounts by calendar month.
const MonthKeyFormat = "2006-01"

// DefaultDateFormat is the wire/storage format for plain dates.
const DefaultDateFormat = "2006-01-02"

// MonthKey returns the yyyy-MM bucket key for a date.
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyFormat)
}

// ParseMonthKey parses a yyyy-MM key into the first instant of that month (UTC).
func ParseMonthKey(key string) (time.Time, error) {
	return time.Parse(MonthKeyFormat, key)
}

// StartOfMonth truncates a date to the first day of its month, keeping the location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AddMonths moves a month-start date forward (or backward) by n calendar months.
// Inputs are expected to already be month starts, so day-overflow normalization
// never changes the month.
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// MonthsBetween returns the number of whole calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
