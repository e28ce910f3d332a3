package calendar

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a calendar entity does not exist.
	ErrNotFound = errors.New("calendar: not found")

	// ErrDuplicateName is returned when an event type name is already used
	// on the same calendar.
	ErrDuplicateName = errors.New("calendar: an event type with this name already exists")

	// ErrInvalidEvent is returned for events missing required fields.
	ErrInvalidEvent = errors.New("calendar: invalid event")
)

// CalendarStore persists calendars.
type CalendarStore interface {
	CreateCalendar(ctx context.Context, c Calendar) (Calendar, error)
	GetCalendar(ctx context.Context, id string) (Calendar, error)
}

// EventStore persists events. Listed events carry their resolved EventType.
type EventStore interface {
	ListEvents(ctx context.Context, calendarID string) ([]Event, error)
	GetEvent(ctx context.Context, calendarID, id string) (Event, error)
	CreateEvent(ctx context.Context, e Event) (Event, error)
	UpdateEvent(ctx context.Context, e Event) (Event, error)
	DeleteEvent(ctx context.Context, calendarID, id string) error
	DeleteEvents(ctx context.Context, calendarID string, ids []string) error
	DeleteAllEvents(ctx context.Context, calendarID string) error
	ReorderEvents(ctx context.Context, calendarID string, ids []string) error
}

// EventTypeStore persists event types. The (calendarID, name) pair is unique.
type EventTypeStore interface {
	ListEventTypes(ctx context.Context, calendarID string) ([]EventType, error)
	GetEventTypeByName(ctx context.Context, calendarID, name string) (EventType, error)
	CreateEventType(ctx context.Context, t EventType) (EventType, error)
	UpsertEventType(ctx context.Context, t EventType) (EventType, error)
	DeleteEventType(ctx context.Context, calendarID, id string) error
	DeleteEventTypesExcept(ctx context.Context, calendarID string, keep []string) error
}

// PromptStore persists prompt history, newest first.
type PromptStore interface {
	CreatePrompt(ctx context.Context, p Prompt) (Prompt, error)
	ListPrompts(ctx context.Context, calendarID string, limit int) ([]Prompt, error)
	DeletePrompt(ctx context.Context, calendarID, id string) error
	LinkEvents(ctx context.Context, calendarID, promptID string, eventIDs []string) error
	// LatestPromptWithEvents returns the newest prompt that still has linked
	// events, together with those events.
	LatestPromptWithEvents(ctx context.Context, calendarID string) (Prompt, []Event, error)
}

// SnapshotStore persists calendar snapshots.
type SnapshotStore interface {
	// CreateSnapshot stores the prompt and its state together.
	CreateSnapshot(ctx context.Context, p Prompt, s Snapshot) (Snapshot, error)
	GetSnapshot(ctx context.Context, calendarID, id string) (Snapshot, error)
	ListSnapshots(ctx context.Context, calendarID string, limit int) ([]Snapshot, error)
}

// Transactor is implemented by stores that can run several writes
// atomically. fn receives a Store bound to the transaction; returning an
// error rolls every write back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// Store is everything the planner needs from persistence.
type Store interface {
	CalendarStore
	EventStore
	EventTypeStore
	PromptStore
	SnapshotStore

	Ping(ctx context.Context) error
}
