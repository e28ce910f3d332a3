package postgres

import (
	"database/sql"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
)

type calendarRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	SchoolZone string    `db:"school_zone"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r calendarRow) toCalendar() calendar.Calendar {
	return calendar.Calendar{ID: r.ID, Name: r.Name, SchoolZone: r.SchoolZone, CreatedAt: r.CreatedAt}
}

type eventTypeRow struct {
	ID         string    `db:"id"`
	CalendarID string    `db:"calendar_id"`
	Name       string    `db:"name"`
	Color      string    `db:"color"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r eventTypeRow) toEventType() calendar.EventType {
	return calendar.EventType{ID: r.ID, CalendarID: r.CalendarID, Name: r.Name, Color: r.Color, CreatedAt: r.CreatedAt}
}

// eventRow is an event joined with its type.
type eventRow struct {
	ID          string         `db:"id"`
	CalendarID  string         `db:"calendar_id"`
	Title       string         `db:"title"`
	Notes       sql.NullString `db:"notes"`
	Color       sql.NullString `db:"color"`
	SortOrder   sql.NullInt64  `db:"sort_order"`
	StartDate   time.Time      `db:"start_date"`
	EndDate     time.Time      `db:"end_date"`
	EventTypeID sql.NullString `db:"event_type_id"`
	PromptID    sql.NullString `db:"prompt_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`

	TypeName      sql.NullString `db:"type_name"`
	TypeColor     sql.NullString `db:"type_color"`
	TypeCreatedAt sql.NullTime   `db:"type_created_at"`
}

const eventColumns = `e.id, e.calendar_id, e.title, e.notes, e.color, e.sort_order,
	e.start_date, e.end_date, e.event_type_id, e.prompt_id, e.created_at, e.updated_at,
	t.name AS type_name, t.color AS type_color, t.created_at AS type_created_at`

const eventFrom = `FROM events e LEFT JOIN event_types t ON t.id = e.event_type_id`

const eventOrder = `ORDER BY e.start_date, e.sort_order NULLS LAST, e.created_at, e.id`

func (r eventRow) toEvent() calendar.Event {
	e := calendar.Event{
		ID:          r.ID,
		CalendarID:  r.CalendarID,
		Title:       r.Title,
		Notes:       r.Notes.String,
		Color:       r.Color.String,
		StartDate:   dates.Midnight(r.StartDate),
		EndDate:     dates.Midnight(r.EndDate),
		EventTypeID: r.EventTypeID.String,
		PromptID:    r.PromptID.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.SortOrder.Valid {
		o := int(r.SortOrder.Int64)
		e.Order = &o
	}
	if r.EventTypeID.Valid && r.TypeName.Valid {
		e.EventType = &calendar.EventType{
			ID:         r.EventTypeID.String,
			CalendarID: r.CalendarID,
			Name:       r.TypeName.String,
			Color:      r.TypeColor.String,
			CreatedAt:  r.TypeCreatedAt.Time,
		}
	}
	return e
}

func eventsFromRows(rows []eventRow) []calendar.Event {
	out := make([]calendar.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEvent())
	}
	return out
}

type promptRow struct {
	ID             string         `db:"id"`
	CalendarID     string         `db:"calendar_id"`
	Content        string         `db:"content"`
	Interpretation sql.NullString `db:"interpretation"`
	SnapshotName   sql.NullString `db:"snapshot_name"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r promptRow) toPrompt() calendar.Prompt {
	return calendar.Prompt{
		ID:             r.ID,
		CalendarID:     r.CalendarID,
		Content:        r.Content,
		Interpretation: r.Interpretation.String,
		SnapshotName:   r.SnapshotName.String,
		CreatedAt:      r.CreatedAt,
	}
}

// snapshotRow is a calendar state joined with its prompt.
type snapshotRow struct {
	ID         string    `db:"id"`
	CalendarID string    `db:"calendar_id"`
	PromptID   string    `db:"prompt_id"`
	State      []byte    `db:"state_json"`
	CreatedAt  time.Time `db:"created_at"`

	PromptContent        string         `db:"prompt_content"`
	PromptInterpretation sql.NullString `db:"prompt_interpretation"`
	PromptSnapshotName   sql.NullString `db:"prompt_snapshot_name"`
	PromptCreatedAt      time.Time      `db:"prompt_created_at"`
}

const snapshotColumns = `s.id, s.calendar_id, s.prompt_id, s.state_json, s.created_at,
	p.content AS prompt_content, p.interpretation AS prompt_interpretation,
	p.snapshot_name AS prompt_snapshot_name, p.created_at AS prompt_created_at`

const snapshotFrom = `FROM calendar_states s JOIN prompts p ON p.id = s.prompt_id`

func (r snapshotRow) toSnapshot() calendar.Snapshot {
	return calendar.Snapshot{
		ID:         r.ID,
		CalendarID: r.CalendarID,
		PromptID:   r.PromptID,
		State:      append([]byte(nil), r.State...),
		CreatedAt:  r.CreatedAt,
		Prompt: &calendar.Prompt{
			ID:             r.PromptID,
			CalendarID:     r.CalendarID,
			Content:        r.PromptContent,
			Interpretation: r.PromptInterpretation.String,
			SnapshotName:   r.PromptSnapshotName.String,
			CreatedAt:      r.PromptCreatedAt,
		},
	}
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullOrder(o *int) sql.NullInt64 {
	if o == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*o), Valid: true}
}

// dateParam formats a day for a ::date parameter so the session time zone
// never shifts it.
func dateParam(t time.Time) string {
	return dates.FormatDate(t)
}

// limitParam maps a non-positive limit to NULL, which Postgres reads as
// no limit.
func limitParam(limit int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
}
