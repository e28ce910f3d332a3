// Package calendar defines the calendar domain (calendars, events, event
// types, prompt history and snapshots) and the Store contract the planner
// persists it through.
//
// Two Store implementations exist: MemoryStore in this package, used for
// development and tests, and the Postgres store in calendar/postgres.
//
// Example usage:
//
//	store := calendar.NewMemoryStore()
//	cal, err := store.CreateCalendar(ctx, calendar.Calendar{Name: "Family", SchoolZone: "B"})
//	if err != nil {
//	    return err
//	}
//	events, err := store.ListEvents(ctx, cal.ID)
package calendar
