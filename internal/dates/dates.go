package dates

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO calendar-date layout used on every boundary.
const Layout = "2006-01-02"

var weekdayNames = [7]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}

var monthNames = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var weekdayLookup = map[string]time.Weekday{
	"dimanche":  time.Sunday,
	"lundi":     time.Monday,
	"mardi":     time.Tuesday,
	"mercredi":  time.Wednesday,
	"jeudi":     time.Thursday,
	"vendredi":  time.Friday,
	"samedi":    time.Saturday,
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Date builds a civil date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight drops the clock part of t, keeping its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// AddDays moves a civil date by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD). A full RFC 3339
// timestamp is accepted too and truncated to its calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Midnight(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(Layout)
}

// WeekdayName returns the French name of the weekday.
func WeekdayName(wd time.Weekday) string {
	return weekdayNames[wd]
}

// MonthName returns the French name of the month.
func MonthName(m time.Month) string {
	return monthNames[m-1]
}

// FormatLong renders a date the way it is read to users, e.g. "13 mars 2026".
func FormatLong(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), MonthName(t.Month()), t.Year())
}

// ParseWeekday accepts French or English weekday names, ignoring case and
// surrounding whitespace.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayLookup[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", name)
	}
	return wd, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// EachDay calls fn for every day of the inclusive range [from, to].
func EachDay(from, to time.Time, fn func(time.Time)) {
	for d := Midnight(from); !d.After(to); d = AddDays(d, 1) {
		fn(d)
	}
}
