// Package dates centralises the calendar-date conventions used across the
// API: values travel as YYYY-MM-DD strings and are stored as DATE columns.
package dates

import "time"

const layout = "2006-01-02"

// Parse reads a strict YYYY-MM-DD value. Out-of-range components such as
// 2023-02-30 are rejected.
func Parse(raw string) (time.Time, error) {
	return time.Parse(layout, raw)
}

// Format renders a date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(layout)
}

// FormatPtr renders an optional date, keeping nil as nil.
func FormatPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

// MonthsBetween counts whole calendar months from debut to fin, ignoring
// the day component. A fin before debut yields zero.
func MonthsBetween(debut, fin time.Time) int {
	months := (fin.Year()-debut.Year())*12 + int(fin.Month()) - int(debut.Month())
	if months < 0 {
		return 0
	}
	return months
}
