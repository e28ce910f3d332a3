package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/holidays"
)

// DateRange is an inclusive run of days.
type DateRange struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Days returns the number of days in r.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// SplitMode says what happens to the clicked day.
type SplitMode string

const (
	// SplitExclude drops the clicked day. On a weekend day or a public
	// holiday the whole run of days off around it is dropped.
	SplitExclude SplitMode = "exclude"
	// SplitReplace recreates the clicked day as its own event.
	SplitReplace SplitMode = "replace"
)

// SplitRequest asks to cut an event around Date.
type SplitRequest struct {
	Date time.Time
	Mode SplitMode
	// Title of the recreated day. Required with SplitReplace.
	Title string
}

func (r SplitRequest) validate() error {
	switch r.Mode {
	case SplitExclude:
		return nil
	case SplitReplace:
		if strings.TrimSpace(r.Title) == "" {
			return fmt.Errorf("%w: a title is required to replace the day", ErrInvalidSplit)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSplit, r.Mode)
	}
}

// Split decomposes e around the single day clicked. before ends the day
// before clicked and after starts the day after it; either is nil when
// empty.
func Split(e calendar.Event, clicked time.Time) (before, after *DateRange, err error) {
	day := dates.Midnight(clicked)
	return SplitRange(e, DateRange{Start: day, End: day})
}

// SplitRange decomposes e around cut, which must lie inside e. The two
// ranges and cut never overlap and leave no gap inside the event.
func SplitRange(e calendar.Event, cut DateRange) (before, after *DateRange, err error) {
	start, end := dates.Midnight(e.StartDate), dates.Midnight(e.EndDate)
	from, to := dates.Midnight(cut.Start), dates.Midnight(cut.End)
	if to.Before(from) || from.Before(start) || to.After(end) {
		return nil, nil, fmt.Errorf("%w: %s..%s is outside %s..%s", ErrInvalidSplit,
			dates.FormatDate(from), dates.FormatDate(to), dates.FormatDate(start), dates.FormatDate(end))
	}

	if prev := dates.AddDays(from, -1); !prev.Before(start) {
		before = &DateRange{Start: start, End: prev}
	}
	if next := dates.AddDays(to, 1); !next.After(end) {
		after = &DateRange{Start: next, End: end}
	}
	return before, after, nil
}

// DaysOff widens day to the consecutive weekend days and public holidays
// around it, without leaving within. A working day comes back alone.
func DaysOff(day time.Time, within DateRange, hols []holidays.Holiday) DateRange {
	day = dates.Midnight(day)
	r := DateRange{Start: day, End: day}
	off := func(d time.Time) bool { return holidays.Classify(d, hols) != holidays.Ordinary }
	if !off(day) {
		return r
	}
	for prev := dates.AddDays(r.Start, -1); !prev.Before(within.Start) && off(prev); prev = dates.AddDays(prev, -1) {
		r.Start = prev
	}
	for next := dates.AddDays(r.End, 1); !next.After(within.End) && off(next); next = dates.AddDays(next, 1) {
		r.End = next
	}
	return r
}

// segment copies the descriptive fields of e onto a new event over r.
func segment(e calendar.Event, r DateRange) calendar.Event {
	return calendar.Event{
		CalendarID:  e.CalendarID,
		Title:       e.Title,
		Notes:       e.Notes,
		Color:       e.Color,
		StartDate:   r.Start,
		EndDate:     r.End,
		EventTypeID: e.EventTypeID,
	}
}
