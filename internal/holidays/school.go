package holidays

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/calprompt/internal/dates"
)

//go:embed school_holidays.yaml
var defaultSchoolTable []byte

// Zone is a French school-calendar region.
type Zone string

const (
	ZoneA Zone = "A"
	ZoneB Zone = "B"
	ZoneC Zone = "C"

	DefaultZone = ZoneB
)

// ErrInvalidZone is returned for a zone other than A, B or C.
var ErrInvalidZone = errors.New("invalid school zone")

// ParseZone validates a zone letter. An empty string yields DefaultZone.
func ParseZone(s string) (Zone, error) {
	switch z := Zone(strings.ToUpper(strings.TrimSpace(s))); z {
	case "":
		return DefaultZone, nil
	case ZoneA, ZoneB, ZoneC:
		return z, nil
	default:
		return "", fmt.Errorf("%w %q, expected A, B or C", ErrInvalidZone, s)
	}
}

// SchoolHoliday is a named, inclusive date range for one or more zones.
type SchoolHoliday struct {
	Name  string
	Start time.Time
	End   time.Time
	Zones []Zone
}

// Covers reports whether date falls within the holiday.
func (s SchoolHoliday) Covers(date time.Time) bool {
	d := dates.Midnight(date)
	return !d.Before(s.Start) && !d.After(s.End)
}

// HasZone reports whether the holiday applies to zone.
func (s SchoolHoliday) HasZone(zone Zone) bool {
	return slices.Contains(s.Zones, zone)
}

// MergedSchoolHoliday is the view of school holidays on one date.
type MergedSchoolHoliday struct {
	Name  string `json:"name"`
	Zones []Zone `json:"zones"`
}

type yamlTable struct {
	Tables []struct {
		Year     int `yaml:"year"`
		Holidays []struct {
			Name  string   `yaml:"name"`
			Start string   `yaml:"start"`
			End   string   `yaml:"end"`
			Zones []string `yaml:"zones"`
		} `yaml:"holidays"`
	} `yaml:"tables"`
}

// SchoolTable is the curated school-holiday data, keyed by the year the
// table was issued for.
type SchoolTable struct {
	byYear map[int][]SchoolHoliday
}

// DefaultSchoolTable returns the table shipped with the binary.
func DefaultSchoolTable() *SchoolTable {
	t, err := ParseSchoolTable(defaultSchoolTable)
	if err != nil {
		panic(fmt.Sprintf("embedded school holiday table: %v", err))
	}
	return t
}

// LoadSchoolTable reads a replacement table from path. An empty path
// returns the embedded table.
func LoadSchoolTable(path string) (*SchoolTable, error) {
	if path == "" {
		return DefaultSchoolTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read school holiday table: %w", err)
	}
	return ParseSchoolTable(data)
}

// ParseSchoolTable decodes a YAML school-holiday table.
func ParseSchoolTable(data []byte) (*SchoolTable, error) {
	var raw yamlTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse school holiday table: %w", err)
	}

	t := &SchoolTable{byYear: make(map[int][]SchoolHoliday, len(raw.Tables))}
	for _, table := range raw.Tables {
		for _, h := range table.Holidays {
			start, err := dates.ParseDate(h.Start)
			if err != nil {
				return nil, fmt.Errorf("%d %s: %w", table.Year, h.Name, err)
			}
			end, err := dates.ParseDate(h.End)
			if err != nil {
				return nil, fmt.Errorf("%d %s: %w", table.Year, h.Name, err)
			}
			if end.Before(start) {
				return nil, fmt.Errorf("%d %s: end %s before start %s", table.Year, h.Name, h.End, h.Start)
			}
			zones := make([]Zone, 0, len(h.Zones))
			for _, z := range h.Zones {
				zone, err := ParseZone(z)
				if err != nil || z == "" {
					return nil, fmt.Errorf("%d %s: invalid zone %q", table.Year, h.Name, z)
				}
				zones = append(zones, zone)
			}
			t.byYear[table.Year] = append(t.byYear[table.Year], SchoolHoliday{
				Name:  h.Name,
				Start: start,
				End:   end,
				Zones: zones,
			})
		}
	}
	return t, nil
}

// Years lists the table years in ascending order.
func (t *SchoolTable) Years() []int {
	years := make([]int, 0, len(t.byYear))
	for y := range t.byYear {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// SchoolHolidays returns the entries of the given table years, restricted to
// zone unless zone is empty. Identical entries from different tables are
// returned once.
func (t *SchoolTable) SchoolHolidays(years []int, zone Zone) []SchoolHoliday {
	type key struct {
		name       string
		start, end time.Time
	}
	seen := make(map[key]bool)
	var out []SchoolHoliday
	for _, y := range years {
		for _, h := range t.byYear[y] {
			if zone != "" && !h.HasZone(zone) {
				continue
			}
			k := key{h.Name, h.Start, h.End}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, h)
		}
	}
	return out
}

// MergedSchoolHolidayForDate reports the school holiday covering date. When
// several entries cover it, the name of the first one wins and the zones of
// every covering entry with that name are merged, deduplicated and sorted.
func MergedSchoolHolidayForDate(date time.Time, entries []SchoolHoliday) (MergedSchoolHoliday, bool) {
	var merged MergedSchoolHoliday
	found := false
	for _, h := range entries {
		if !h.Covers(date) {
			continue
		}
		if !found {
			merged.Name = h.Name
			found = true
		}
		if h.Name != merged.Name {
			continue
		}
		for _, z := range h.Zones {
			if !slices.Contains(merged.Zones, z) {
				merged.Zones = append(merged.Zones, z)
			}
		}
	}
	slices.Sort(merged.Zones)
	return merged, found
}
