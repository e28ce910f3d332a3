package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/calprompt/internal/dates"
)

// DefaultTypeColor is used when an event type is created without a color.
const DefaultTypeColor = "#3b82f6"

// Calendar owns events, event types and prompt history.
type Calendar struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SchoolZone string    `json:"schoolZone"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Event is an all-day event spanning StartDate..EndDate inclusive.
type Event struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendarId"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Color       string     `json:"color,omitempty"`
	Order       *int       `json:"order,omitempty"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	EventTypeID string     `json:"eventTypeId,omitempty"`
	EventType   *EventType `json:"eventType,omitempty"`
	PromptID    string     `json:"promptId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Normalize trims the title and truncates both dates to midnight.
func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	if !e.StartDate.IsZero() {
		e.StartDate = dates.Midnight(e.StartDate)
	}
	if !e.EndDate.IsZero() {
		e.EndDate = dates.Midnight(e.EndDate)
	}
}

// Validate checks the fields every stored event must have.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	case e.StartDate.IsZero() || e.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidEvent)
	case e.EndDate.Before(e.StartDate):
		return fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidEvent, dates.FormatDate(e.EndDate), dates.FormatDate(e.StartDate))
	}
	return nil
}

// Covers reports whether day lies within the event.
func (e Event) Covers(day time.Time) bool {
	d := dates.Midnight(day)
	return !d.Before(e.StartDate) && !d.After(e.EndDate)
}

// TypeName returns the resolved type name, or "" when untyped.
func (e Event) TypeName() string {
	if e.EventType == nil {
		return ""
	}
	return e.EventType.Name
}

// EventType groups events under a name and color, unique per calendar.
type EventType struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendarId"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FindType returns the type whose name matches case-insensitively.
func FindType(types []EventType, name string) (EventType, bool) {
	name = strings.TrimSpace(name)
	for _, t := range types {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return EventType{}, false
}

// Prompt records one instruction sent to the interpreter, or a named manual
// snapshot when SnapshotName is set.
type Prompt struct {
	ID             string    `json:"id"`
	CalendarID     string    `json:"calendarId"`
	Content        string    `json:"content"`
	Interpretation string    `json:"interpretation,omitempty"`
	SnapshotName   string    `json:"snapshotName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsSnapshot reports whether the prompt marks a manual snapshot.
func (p Prompt) IsSnapshot() bool {
	return p.SnapshotName != ""
}

// Snapshot is an immutable serialized calendar state tied to a Prompt.
type Snapshot struct {
	ID         string          `json:"id"`
	CalendarID string          `json:"calendarId"`
	PromptID   string          `json:"promptId"`
	State      json.RawMessage `json:"state"`
	CreatedAt  time.Time       `json:"createdAt"`
	Prompt     *Prompt         `json:"prompt,omitempty"`
}

// Name returns the snapshot's display name.
func (s Snapshot) Name() string {
	if s.Prompt == nil {
		return ""
	}
	return s.Prompt.SnapshotName
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Notes       *string
	Color       *string
	Order       *int
	StartDate   *time.Time
	EndDate     *time.Time
	EventTypeID *string
}

// Apply copies the set fields of p onto e.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.Order != nil {
		o := *p.Order
		e.Order = &o
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.EventTypeID != nil {
		e.EventTypeID = *p.EventTypeID
	}
	e.Normalize()
}
