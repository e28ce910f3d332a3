package holidays

import (
	"time"

	"github.com/teemow/calprompt/internal/dates"
)

// Holiday is a public holiday on a single civil date.
type Holiday struct {
	Date time.Time `json:"-"`
	Name string    `json:"name"`
}

// ISODate returns the holiday date as YYYY-MM-DD.
func (h Holiday) ISODate() string {
	return dates.FormatDate(h.Date)
}

// Easter computes Easter Sunday of the Gregorian calendar with the
// Meeus/Jones/Butcher algorithm. Valid for every year from 1583.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return dates.Date(year, time.Month(month), day)
}

// Public returns the French public holidays of a year in calendar order.
func Public(year int) []Holiday {
	easter := Easter(year)
	return []Holiday{
		{Date: dates.Date(year, time.January, 1), Name: "Jour de l'An"},
		{Date: dates.AddDays(easter, 1), Name: "Lundi de Pâques"},
		{Date: dates.Date(year, time.May, 1), Name: "Fête du Travail"},
		{Date: dates.Date(year, time.May, 8), Name: "Victoire 1945"},
		{Date: dates.AddDays(easter, 39), Name: "Ascension"},
		{Date: dates.AddDays(easter, 50), Name: "Lundi de Pentecôte"},
		{Date: dates.Date(year, time.July, 14), Name: "Fête Nationale"},
		{Date: dates.Date(year, time.August, 15), Name: "Assomption"},
		{Date: dates.Date(year, time.November, 1), Name: "Toussaint"},
		{Date: dates.Date(year, time.November, 11), Name: "Armistice 1918"},
		{Date: dates.Date(year, time.December, 25), Name: "Noël"},
	}
}

// PublicRange returns the public holidays of every year in [from, to].
func PublicRange(from, to int) []Holiday {
	var out []Holiday
	for y := from; y <= to; y++ {
		out = append(out, Public(y)...)
	}
	return out
}

// IsHoliday looks date up in holidays.
func IsHoliday(date time.Time, holidays []Holiday) (Holiday, bool) {
	day := dates.Midnight(date)
	for _, h := range holidays {
		if h.Date.Equal(day) {
			return h, true
		}
	}
	return Holiday{}, false
}

// DayKind classifies a day for holiday and weekend warnings.
type DayKind int

const (
	Ordinary DayKind = iota
	Weekend
	PublicHoliday
	WeekendHoliday
)

func (k DayKind) String() string {
	switch k {
	case Weekend:
		return "weekend"
	case PublicHoliday:
		return "public-holiday"
	case WeekendHoliday:
		return "weekend+holiday"
	default:
		return "ordinary"
	}
}

// Classify puts date in exactly one DayKind.
func Classify(date time.Time, holidays []Holiday) DayKind {
	_, holiday := IsHoliday(date, holidays)
	weekend := dates.IsWeekend(date)
	switch {
	case holiday && weekend:
		return WeekendHoliday
	case holiday:
		return PublicHoliday
	case weekend:
		return Weekend
	default:
		return Ordinary
	}
}
