// Package dates holds the deterministic date arithmetic the interpreter
// relies on instead of letting the reasoning backend count days itself.
//
// All dates are civil dates represented as time.Time at UTC midnight and
// exchanged as YYYY-MM-DD strings. Weekday names are accepted in French or
// English and always returned in French, matching the calendar's locale.
//
// The six resolution operations (NthWeekdayOfMonth, LastWeekdayOfMonth,
// DayOfWeek, RelativeDate, NextWeekday, MondayOfWeek) never guess: invalid
// weekday names, months or dates produce a failed Result with a message.
package dates
