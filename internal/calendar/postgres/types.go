package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/teemow/calprompt/internal/calendar"
)

const typeColumns = `id, calendar_id, name, color, created_at`

// ListEventTypes implements calendar.EventTypeStore, ordered by name.
func (s *Store) ListEventTypes(ctx context.Context, calendarID string) ([]calendar.EventType, error) {
	var rows []eventTypeRow
	err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+typeColumns+` FROM event_types WHERE calendar_id = $1 ORDER BY name, id`, calendarID)
	if err != nil {
		return nil, mapErr(err, "list event types")
	}
	out := make([]calendar.EventType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEventType())
	}
	return out, nil
}

// GetEventTypeByName implements calendar.EventTypeStore. The match is exact.
func (s *Store) GetEventTypeByName(ctx context.Context, calendarID, name string) (calendar.EventType, error) {
	var row eventTypeRow
	err := sqlx.GetContext(ctx, s.db, &row,
		`SELECT `+typeColumns+` FROM event_types WHERE calendar_id = $1 AND name = $2`, calendarID, name)
	if err != nil {
		return calendar.EventType{}, mapErr(err, fmt.Sprintf("event type %q", name))
	}
	return row.toEventType(), nil
}

// CreateEventType implements calendar.EventTypeStore.
func (s *Store) CreateEventType(ctx context.Context, t calendar.EventType) (calendar.EventType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return calendar.EventType{}, fmt.Errorf("event type name is required")
	}
	if t.Color == "" {
		t.Color = calendar.DefaultTypeColor
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var row eventTypeRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		INSERT INTO event_types (id, calendar_id, name, color)
		VALUES ($1, $2, $3, $4)
		RETURNING `+typeColumns,
		t.ID, t.CalendarID, t.Name, t.Color)
	if err != nil {
		return calendar.EventType{}, mapErr(err, fmt.Sprintf("event type %q", t.Name))
	}
	return row.toEventType(), nil
}

// UpsertEventType implements calendar.EventTypeStore: the type with t.ID is
// renamed and recolored, or created with that id.
func (s *Store) UpsertEventType(ctx context.Context, t calendar.EventType) (calendar.EventType, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var row eventTypeRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		INSERT INTO event_types (id, calendar_id, name, color)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color
		WHERE event_types.calendar_id = EXCLUDED.calendar_id
		RETURNING `+typeColumns,
		t.ID, t.CalendarID, t.Name, t.Color)
	if err != nil {
		return calendar.EventType{}, mapErr(err, fmt.Sprintf("event type %q", t.Name))
	}
	return row.toEventType(), nil
}

// DeleteEventType implements calendar.EventTypeStore. Events referencing the
// type are kept and become untyped.
func (s *Store) DeleteEventType(ctx context.Context, calendarID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM event_types WHERE calendar_id = $1 AND id = $2`, calendarID, id)
	if err != nil {
		return mapErr(err, "event type "+id)
	}
	return mustAffect(res, "event type "+id)
}

// DeleteEventTypesExcept implements calendar.EventTypeStore.
func (s *Store) DeleteEventTypesExcept(ctx context.Context, calendarID string, keep []string) error {
	if keep == nil {
		keep = []string{}
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM event_types WHERE calendar_id = $1 AND NOT (id = ANY($2))`,
		calendarID, pq.Array(keep))
	return mapErr(err, "delete event types")
}
