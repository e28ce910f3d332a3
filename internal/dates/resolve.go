package dates

import (
	"fmt"
	"time"
)

// Result is the structured answer of a date resolution operation.
type Result struct {
	Success   bool   `json:"success"`
	Date      string `json:"date,omitempty"`
	DayOfWeek string `json:"dayOfWeek,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Unit is the step used by RelativeDate.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

func ok(t time.Time) Result {
	return Result{Success: true, Date: FormatDate(t), DayOfWeek: WeekdayName(t.Weekday())}
}

// Failure builds a failed Result from a formatted message.
func Failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d, expected 1-12", month)
	}
	return nil
}

// NthWeekdayOfMonth finds the nth (1-based) occurrence of weekday in the month.
func NthWeekdayOfMonth(year, month int, weekday string, nth int) Result {
	if err := checkMonth(month); err != nil {
		return Failure("%s", err)
	}
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return Failure("%s", err)
	}
	if nth < 1 {
		return Failure("invalid occurrence %d, expected 1 or more", nth)
	}

	m := time.Month(month)
	count := 0
	for day := 1; day <= DaysIn(year, m); day++ {
		d := Date(year, m, day)
		if d.Weekday() != wd {
			continue
		}
		count++
		if count == nth {
			return ok(d)
		}
	}
	return Failure("%s %d has only %d %s", MonthName(m), year, count, WeekdayName(wd))
}

// LastWeekdayOfMonth finds the last occurrence of weekday in the month.
func LastWeekdayOfMonth(year, month int, weekday string) Result {
	if err := checkMonth(month); err != nil {
		return Failure("%s", err)
	}
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return Failure("%s", err)
	}

	m := time.Month(month)
	for day := DaysIn(year, m); day >= 1; day-- {
		d := Date(year, m, day)
		if d.Weekday() == wd {
			return ok(d)
		}
	}
	// unreachable: every month has at least 28 days
	return Failure("no %s in %s %d", WeekdayName(wd), MonthName(m), year)
}

// DayOfWeek returns the weekday of an ISO date.
func DayOfWeek(date string) Result {
	d, err := ParseDate(date)
	if err != nil {
		return Failure("%s", err)
	}
	return ok(d)
}

// RelativeDate offsets base by a number of days, weeks or months. Month
// arithmetic rolls over like time.AddDate: 2026-01-31 + 1 month is 2026-03-03.
func RelativeDate(base string, offset int, unit Unit) Result {
	d, err := ParseDate(base)
	if err != nil {
		return Failure("%s", err)
	}
	switch unit {
	case UnitDays:
		return ok(AddDays(d, offset))
	case UnitWeeks:
		return ok(AddDays(d, offset*7))
	case UnitMonths:
		return ok(d.AddDate(0, offset, 0))
	default:
		return Failure("invalid unit %q, expected days, weeks or months", unit)
	}
}

// NextWeekday finds the next occurrence of weekday after from. With
// includeToday, from itself qualifies.
func NextWeekday(from string, weekday string, includeToday bool) Result {
	d, err := ParseDate(from)
	if err != nil {
		return Failure("%s", err)
	}
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return Failure("%s", err)
	}

	if !includeToday {
		d = AddDays(d, 1)
	}
	delta := (int(wd) - int(d.Weekday()) + 7) % 7
	return ok(AddDays(d, delta))
}

// MondayOfWeek returns the Monday of the ISO week containing date. Sunday
// belongs to the week that started six days earlier.
func MondayOfWeek(date string) Result {
	d, err := ParseDate(date)
	if err != nil {
		return Failure("%s", err)
	}
	return ok(StartOfWeek(d))
}

// StartOfWeek returns the Monday of t's ISO week.
func StartOfWeek(t time.Time) time.Time {
	back := (int(t.Weekday()) + 6) % 7
	return AddDays(Midnight(t), -back)
}
