package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
)

func TestExport(t *testing.T) {
	updated := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	work := &calendar.EventType{ID: "t-1", Name: "Work", Color: "#ff0000"}
	events := []calendar.Event{
		{ID: "e-1", Title: "Training", Notes: "room 4", StartDate: dates.Date(2026, 3, 2), EndDate: dates.Date(2026, 3, 6), EventTypeID: "t-1", EventType: work, UpdatedAt: updated},
		{ID: "e-2", Title: "Dentist", StartDate: dates.Date(2026, 3, 31), EndDate: dates.Date(2026, 3, 31), Color: "#00ff00"},
	}

	out := Export(calendar.Calendar{ID: "c-1", Name: "Family"}, events)
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "X-WR-CALNAME:Family")

	parsed, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	vevents := parsed.Events()
	require.Len(t, vevents, 2)

	first := vevents[0]
	assert.Equal(t, "e-1@calprompt", first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Training", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "room 4", first.GetProperty(ical.ComponentPropertyDescription).Value)
	assert.Equal(t, "Work", first.GetProperty(ical.ComponentPropertyCategories).Value)
	assert.Equal(t, "#ff0000", first.GetProperty(ical.ComponentProperty("COLOR")).Value)
	assert.Equal(t, "20260302", first.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20260307", first.GetProperty(ical.ComponentPropertyDtEnd).Value)

	second := vevents[1]
	assert.Equal(t, "20260331", second.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20260401", second.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Nil(t, second.GetProperty(ical.ComponentPropertyCategories))
	assert.Equal(t, "#00ff00", second.GetProperty(ical.ComponentProperty("COLOR")).Value)
}

func TestExport_Empty(t *testing.T) {
	out := Export(calendar.Calendar{}, nil)
	parsed, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	assert.Empty(t, parsed.Events())
	assert.NotContains(t, out, "X-WR-CALNAME")
}
