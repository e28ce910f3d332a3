package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
)

// State is the serialized calendar carried by a snapshot.
type State struct {
	Events     []StateEvent      `json:"events"`
	EventTypes []StateEventType  `json:"eventTypes"`
	Rules      []json.RawMessage `json:"rules"`
}

// StateEvent is one event of a State.
type StateEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	EventTypeID *string   `json:"eventTypeId"`
	Notes       string    `json:"notes,omitempty"`
	Color       string    `json:"color,omitempty"`
}

// UnmarshalJSON accepts both plain dates and full timestamps for the
// start and end dates.
func (e *StateEvent) UnmarshalJSON(data []byte) error {
	type plain StateEvent
	var raw struct {
		plain
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := dates.ParseDate(raw.StartDate)
	if err != nil {
		return fmt.Errorf("event %s startDate: %w", raw.ID, err)
	}
	end, err := dates.ParseDate(raw.EndDate)
	if err != nil {
		return fmt.Errorf("event %s endDate: %w", raw.ID, err)
	}
	*e = StateEvent(raw.plain)
	e.StartDate, e.EndDate = start, end
	return nil
}

// StateEventType is one event type of a State.
type StateEventType struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// EncodeState serializes events and types.
func EncodeState(events []calendar.Event, types []calendar.EventType) (json.RawMessage, error) {
	st := State{
		Events:     make([]StateEvent, 0, len(events)),
		EventTypes: make([]StateEventType, 0, len(types)),
		Rules:      []json.RawMessage{},
	}
	for _, e := range events {
		se := StateEvent{
			ID:        e.ID,
			Title:     e.Title,
			StartDate: e.StartDate.UTC(),
			EndDate:   e.EndDate.UTC(),
			Notes:     e.Notes,
			Color:     e.Color,
		}
		if e.EventTypeID != "" {
			id := e.EventTypeID
			se.EventTypeID = &id
		}
		st.Events = append(st.Events, se)
	}
	for _, t := range types {
		st.EventTypes = append(st.EventTypes, StateEventType{ID: t.ID, Name: t.Name, Color: t.Color})
	}

	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("planner: failed to encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a snapshot blob. Unknown fields are ignored.
func DecodeState(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return st, nil
}

// typeIDs returns the set of type ids in st.
func (st State) typeIDs() []string {
	ids := make([]string, 0, len(st.EventTypes))
	for _, t := range st.EventTypes {
		ids = append(ids, t.ID)
	}
	return ids
}
