// Package ics renders calendars as iCalendar feeds.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
)

// ProductID identifies the generator in exported feeds.
const ProductID = "-//calprompt//calprompt//FR"

// ContentType is the media type of an exported feed.
const ContentType = "text/calendar; charset=utf-8"

// uidDomain is appended to event ids to form globally unique UIDs.
const uidDomain = "@calprompt"

// Export renders events as one all-day VEVENT each. DTEND is exclusive, so
// it lands on the day after the event's last day.
func Export(c calendar.Calendar, events []calendar.Event) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if c.Name != "" {
		cal.SetXWRCalName(c.Name)
	}

	for _, e := range events {
		ve := cal.AddEvent(e.ID + uidDomain)
		ve.SetDtStampTime(stamp(e))
		if !e.CreatedAt.IsZero() {
			ve.SetCreatedTime(e.CreatedAt)
		}
		ve.SetAllDayStartAt(dates.Midnight(e.StartDate))
		ve.SetAllDayEndAt(dates.AddDays(dates.Midnight(e.EndDate), 1))
		ve.SetSummary(e.Title)
		if e.Notes != "" {
			ve.SetDescription(e.Notes)
		}
		if name := e.TypeName(); name != "" {
			ve.AddProperty(ical.ComponentPropertyCategories, name)
		}
		if color := eventColor(e); color != "" {
			ve.SetProperty(ical.ComponentProperty("COLOR"), color)
		}
	}
	return cal.Serialize()
}

func stamp(e calendar.Event) time.Time {
	switch {
	case !e.UpdatedAt.IsZero():
		return e.UpdatedAt.UTC()
	case !e.CreatedAt.IsZero():
		return e.CreatedAt.UTC()
	}
	return time.Now().UTC()
}

// eventColor prefers the event's own color over its type's.
func eventColor(e calendar.Event) string {
	if e.Color != "" {
		return e.Color
	}
	if e.EventType != nil {
		return e.EventType.Color
	}
	return ""
}
