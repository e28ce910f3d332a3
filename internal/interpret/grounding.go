package interpret

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/holidays"
)

// ReferenceMonths is the length of the weekday reference table.
const ReferenceMonths = 14

// GroundingInput is everything the context builder reads.
type GroundingInput struct {
	Today  time.Time
	Events []calendar.Event
	Types  []calendar.EventType
	Zone   holidays.Zone
	// School defaults to the embedded table.
	School *holidays.SchoolTable
}

// MonthReference lists the weekday layout of one month.
type MonthReference struct {
	Year         int
	Month        time.Month
	FirstWeekday string
	Mondays      []int
	Fridays      []int
	Saturdays    []int
}

// String renders the month as one reference line, e.g.
// "mars 2026: 1st = dimanche, Mondays = 2, 9, 16, 23, 30, ...".
func (m MonthReference) String() string {
	return fmt.Sprintf("%s %d: 1st = %s, Mondays = %s, Fridays = %s, Saturdays = %s",
		dates.MonthName(m.Month), m.Year, m.FirstWeekday,
		joinInts(m.Mondays), joinInts(m.Fridays), joinInts(m.Saturdays))
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// EventLine is an existing event with the special days it overlaps.
type EventLine struct {
	ID       string
	Title    string
	Notes    string
	Start    time.Time
	End      time.Time
	TypeName string
	Holidays []holidays.Holiday
	Weekends []time.Time
}

// Warnings renders the overlap annotations, or "" when there are none.
func (e EventLine) Warnings() string {
	var b strings.Builder
	if len(e.Holidays) > 0 {
		parts := make([]string, len(e.Holidays))
		for i, h := range e.Holidays {
			parts[i] = fmt.Sprintf("%s (%s)", h.Name, h.ISODate())
		}
		b.WriteString(" ⚠️ INCLUDES HOLIDAY(S): ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if len(e.Weekends) > 0 {
		parts := make([]string, len(e.Weekends))
		for i, d := range e.Weekends {
			parts[i] = dayLabel(d)
		}
		b.WriteString(" ⚠️ INCLUDES WEEKEND(S): ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

// String renders the event as one context line.
func (e EventLine) String() string {
	line := fmt.Sprintf(`- [id: %s] "%s" from %s to %s`, e.ID, e.Title, dayLabel(e.Start), dayLabel(e.End))
	if e.TypeName != "" {
		line += fmt.Sprintf(" (type: %s)", e.TypeName)
	}
	return line + e.Warnings()
}

// dayLabel renders "samedi 2026-03-07".
func dayLabel(d time.Time) string {
	return dates.WeekdayName(d.Weekday()) + " " + dates.FormatDate(d)
}

// Grounding is the context bundle of one interpretation request. It is
// plain data: building it touches neither the store nor the backend.
type Grounding struct {
	Today     time.Time
	TodayName string
	Zone      holidays.Zone
	Reference []MonthReference
	Events    []EventLine
	Types     []calendar.EventType
	Holidays  []holidays.Holiday
	School    []holidays.SchoolHoliday
}

// BuildGrounding assembles the grounding bundle for in.
func BuildGrounding(in GroundingInput) Grounding {
	today := dates.Midnight(in.Today)
	zone := in.Zone
	if zone == "" {
		zone = holidays.DefaultZone
	}
	table := in.School
	if table == nil {
		table = holidays.DefaultSchoolTable()
	}
	year := today.Year()

	g := Grounding{
		Today:     today,
		TodayName: dates.WeekdayName(today.Weekday()),
		Zone:      zone,
		Reference: referenceTable(today, ReferenceMonths),
		Types:     in.Types,
		Holidays:  holidays.PublicRange(year, year+1),
		School:    table.SchoolHolidays([]int{year, year + 1}, zone),
	}
	g.Events = make([]EventLine, 0, len(in.Events))
	for _, e := range in.Events {
		g.Events = append(g.Events, describeEvent(e))
	}
	return g
}

func referenceTable(today time.Time, months int) []MonthReference {
	refs := make([]MonthReference, 0, months)
	first := dates.Date(today.Year(), today.Month(), 1)
	for i := 0; i < months; i++ {
		m := first.AddDate(0, i, 0)
		ref := MonthReference{
			Year:         m.Year(),
			Month:        m.Month(),
			FirstWeekday: dates.WeekdayName(m.Weekday()),
		}
		for day := 1; day <= dates.DaysIn(m.Year(), m.Month()); day++ {
			switch dates.Date(m.Year(), m.Month(), day).Weekday() {
			case time.Monday:
				ref.Mondays = append(ref.Mondays, day)
			case time.Friday:
				ref.Fridays = append(ref.Fridays, day)
			case time.Saturday:
				ref.Saturdays = append(ref.Saturdays, day)
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// describeEvent scans the event range for public holidays and weekend days.
func describeEvent(e calendar.Event) EventLine {
	start, end := dates.Midnight(e.StartDate), dates.Midnight(e.EndDate)
	line := EventLine{
		ID:       e.ID,
		Title:    e.Title,
		Notes:    e.Notes,
		Start:    start,
		End:      end,
		TypeName: e.TypeName(),
	}
	public := holidays.PublicRange(start.Year(), end.Year())
	dates.EachDay(start, end, func(d time.Time) {
		if h, ok := holidays.IsHoliday(d, public); ok {
			line.Holidays = append(line.Holidays, h)
		}
		if dates.IsWeekend(d) {
			line.Weekends = append(line.Weekends, d)
		}
	})
	return line
}
