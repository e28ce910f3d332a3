package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/teemow/calprompt/internal/calendar"
)

// CreateCalendar implements calendar.CalendarStore.
func (s *Store) CreateCalendar(ctx context.Context, c calendar.Calendar) (calendar.Calendar, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var row calendarRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		INSERT INTO calendars (id, name, school_zone)
		VALUES ($1, $2, $3)
		RETURNING id, name, school_zone, created_at`,
		c.ID, c.Name, c.SchoolZone)
	if err != nil {
		return calendar.Calendar{}, mapErr(err, "calendar "+c.ID)
	}
	return row.toCalendar(), nil
}

// GetCalendar implements calendar.CalendarStore.
func (s *Store) GetCalendar(ctx context.Context, id string) (calendar.Calendar, error) {
	var row calendarRow
	err := sqlx.GetContext(ctx, s.db, &row,
		`SELECT id, name, school_zone, created_at FROM calendars WHERE id = $1`, id)
	if err != nil {
		return calendar.Calendar{}, mapErr(err, "calendar "+id)
	}
	return row.toCalendar(), nil
}

// ListEvents implements calendar.EventStore.
func (s *Store) ListEvents(ctx context.Context, calendarID string) ([]calendar.Event, error) {
	var rows []eventRow
	err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+eventColumns+` `+eventFrom+` WHERE e.calendar_id = $1 `+eventOrder, calendarID)
	if err != nil {
		return nil, mapErr(err, "list events")
	}
	return eventsFromRows(rows), nil
}

// GetEvent implements calendar.EventStore.
func (s *Store) GetEvent(ctx context.Context, calendarID, id string) (calendar.Event, error) {
	var row eventRow
	err := sqlx.GetContext(ctx, s.db, &row,
		`SELECT `+eventColumns+` `+eventFrom+` WHERE e.calendar_id = $1 AND e.id = $2`, calendarID, id)
	if err != nil {
		return calendar.Event{}, mapErr(err, "event "+id)
	}
	return row.toEvent(), nil
}

// checkTypeRef rejects a type id that belongs to another calendar. The
// foreign key alone only proves the type exists somewhere.
func (s *Store) checkTypeRef(ctx context.Context, calendarID, typeID string) error {
	if typeID == "" {
		return nil
	}
	var n int
	err := sqlx.GetContext(ctx, s.db, &n,
		`SELECT count(*) FROM event_types WHERE id = $1 AND calendar_id = $2`, typeID, calendarID)
	if err != nil {
		return mapErr(err, "event type "+typeID)
	}
	if n == 0 {
		return fmt.Errorf("event type %s: %w", typeID, calendar.ErrNotFound)
	}
	return nil
}

// CreateEvent implements calendar.EventStore. prompt_id stays NULL until
// LinkEvents sets it.
func (s *Store) CreateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return calendar.Event{}, err
	}
	if err := s.checkTypeRef(ctx, e.CalendarID, e.EventTypeID); err != nil {
		return calendar.Event{}, err
	}
	e.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, calendar_id, title, notes, color, sort_order, start_date, end_date, event_type_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::date, $9)`,
		e.ID, e.CalendarID, e.Title, nullString(e.Notes), nullString(e.Color), nullOrder(e.Order),
		dateParam(e.StartDate), dateParam(e.EndDate), nullString(e.EventTypeID))
	if err != nil {
		return calendar.Event{}, mapErr(err, "event "+e.Title)
	}
	return s.GetEvent(ctx, e.CalendarID, e.ID)
}

// UpdateEvent implements calendar.EventStore. All mutable fields are
// overwritten.
func (s *Store) UpdateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return calendar.Event{}, err
	}
	if err := s.checkTypeRef(ctx, e.CalendarID, e.EventTypeID); err != nil {
		return calendar.Event{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = $3, notes = $4, color = $5, sort_order = $6,
		    start_date = $7::date, end_date = $8::date, event_type_id = $9,
		    updated_at = clock_timestamp()
		WHERE calendar_id = $1 AND id = $2`,
		e.CalendarID, e.ID, e.Title, nullString(e.Notes), nullString(e.Color), nullOrder(e.Order),
		dateParam(e.StartDate), dateParam(e.EndDate), nullString(e.EventTypeID))
	if err != nil {
		return calendar.Event{}, mapErr(err, "event "+e.ID)
	}
	if err := mustAffect(res, "event "+e.ID); err != nil {
		return calendar.Event{}, err
	}
	return s.GetEvent(ctx, e.CalendarID, e.ID)
}

// DeleteEvent implements calendar.EventStore.
func (s *Store) DeleteEvent(ctx context.Context, calendarID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE calendar_id = $1 AND id = $2`, calendarID, id)
	if err != nil {
		return mapErr(err, "event "+id)
	}
	return mustAffect(res, "event "+id)
}

// DeleteEvents implements calendar.EventStore. Unknown ids are ignored.
func (s *Store) DeleteEvents(ctx context.Context, calendarID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE calendar_id = $1 AND id = ANY($2)`, calendarID, pq.Array(ids))
	return mapErr(err, "delete events")
}

// DeleteAllEvents implements calendar.EventStore.
func (s *Store) DeleteAllEvents(ctx context.Context, calendarID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE calendar_id = $1`, calendarID)
	return mapErr(err, "delete events")
}

// ReorderEvents implements calendar.EventStore: each event gets its index
// as sort order. Either every id is reordered or none is.
func (s *Store) ReorderEvents(ctx context.Context, calendarID string, ids []string) error {
	return s.withTx(ctx, func(tx *Store) error {
		for i, id := range ids {
			res, err := tx.db.ExecContext(ctx, `
				UPDATE events SET sort_order = $3, updated_at = clock_timestamp()
				WHERE calendar_id = $1 AND id = $2`, calendarID, id, i)
			if err != nil {
				return mapErr(err, "event "+id)
			}
			if err := mustAffect(res, "event "+id); err != nil {
				return err
			}
		}
		return nil
	})
}
