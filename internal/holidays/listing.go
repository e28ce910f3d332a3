package holidays

import (
	"github.com/teemow/calprompt/internal/dates"
)

// PublicEntry is the wire form of a public holiday.
type PublicEntry struct {
	Date      string `json:"date"`
	DayOfWeek string `json:"dayOfWeek"`
	Name      string `json:"name"`
}

// SchoolEntry is the wire form of a school holiday range.
type SchoolEntry struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Zones     []Zone `json:"zones"`
}

// Listing groups the public and school holidays of one year.
type Listing struct {
	Year   int           `json:"year"`
	Zone   Zone          `json:"zone"`
	Public []PublicEntry `json:"public"`
	School []SchoolEntry `json:"school"`
}

// Listing builds the holiday listing of year for zone. An empty zone lists
// the school holidays of every zone.
func (t *SchoolTable) Listing(year int, zone Zone) Listing {
	l := Listing{
		Year:   year,
		Zone:   zone,
		Public: []PublicEntry{},
		School: []SchoolEntry{},
	}
	for _, h := range Public(year) {
		l.Public = append(l.Public, PublicEntry{
			Date:      h.ISODate(),
			DayOfWeek: dates.WeekdayName(h.Date.Weekday()),
			Name:      h.Name,
		})
	}
	for _, s := range t.SchoolHolidays([]int{year}, zone) {
		l.School = append(l.School, SchoolEntry{
			Name:      s.Name,
			StartDate: dates.FormatDate(s.Start),
			EndDate:   dates.FormatDate(s.End),
			Zones:     s.Zones,
		})
	}
	return l
}
