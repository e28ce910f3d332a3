package calendar

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	seq       int64
	calendars map[string]Calendar
	events    map[string]stored[Event]
	types     map[string]stored[EventType]
	prompts   map[string]stored[Prompt]
	snapshots map[string]stored[Snapshot]
}

type stored[T any] struct {
	seq   int64
	value T
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		calendars: make(map[string]Calendar),
		events:    make(map[string]stored[Event]),
		types:     make(map[string]stored[EventType]),
		prompts:   make(map[string]stored[Prompt]),
		snapshots: make(map[string]stored[Snapshot]),
	}
}

// SetClock replaces the timestamp source, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) next() int64 {
	s.seq++
	return s.seq
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// CreateCalendar implements CalendarStore.
func (s *MemoryStore) CreateCalendar(_ context.Context, c Calendar) (Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.now()
	s.calendars[c.ID] = c
	return c, nil
}

// GetCalendar implements CalendarStore.
func (s *MemoryStore) GetCalendar(_ context.Context, id string) (Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendars[id]
	if !ok {
		return Calendar{}, fmt.Errorf("calendar %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) withType(e Event) Event {
	e.EventType = nil
	if e.EventTypeID == "" {
		return e
	}
	if t, ok := s.types[e.EventTypeID]; ok {
		et := t.value
		e.EventType = &et
	}
	return e
}

func sortEvents(events []Event, seqs map[string]int64) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		ao, bo := orderOf(a), orderOf(b)
		if ao != bo {
			return ao < bo
		}
		return seqs[a.ID] < seqs[b.ID]
	})
}

func orderOf(e Event) int {
	if e.Order == nil {
		return int(^uint(0) >> 1)
	}
	return *e.Order
}

// ListEvents implements EventStore.
func (s *MemoryStore) ListEvents(_ context.Context, calendarID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0)
	seqs := make(map[string]int64)
	for id, st := range s.events {
		if st.value.CalendarID != calendarID {
			continue
		}
		out = append(out, s.withType(st.value))
		seqs[id] = st.seq
	}
	sortEvents(out, seqs)
	return out, nil
}

// GetEvent implements EventStore.
func (s *MemoryStore) GetEvent(_ context.Context, calendarID, id string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.events[id]
	if !ok || st.value.CalendarID != calendarID {
		return Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return s.withType(st.value), nil
}

func (s *MemoryStore) checkTypeRef(calendarID, typeID string) error {
	if typeID == "" {
		return nil
	}
	if t, ok := s.types[typeID]; !ok || t.value.CalendarID != calendarID {
		return fmt.Errorf("event type %s: %w", typeID, ErrNotFound)
	}
	return nil
}

// CreateEvent implements EventStore. The new event is not linked to any
// prompt; links are made with LinkEvents.
func (s *MemoryStore) CreateEvent(_ context.Context, e Event) (Event, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[e.CalendarID]; !ok {
		return Event{}, fmt.Errorf("calendar %s: %w", e.CalendarID, ErrNotFound)
	}
	if err := s.checkTypeRef(e.CalendarID, e.EventTypeID); err != nil {
		return Event{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	e.EventType = nil
	e.PromptID = ""
	s.events[e.ID] = stored[Event]{seq: s.next(), value: e}
	return s.withType(e), nil
}

// UpdateEvent implements EventStore. All mutable fields are overwritten.
func (s *MemoryStore) UpdateEvent(_ context.Context, e Event) (Event, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.events[e.ID]
	if !ok || st.value.CalendarID != e.CalendarID {
		return Event{}, fmt.Errorf("event %s: %w", e.ID, ErrNotFound)
	}
	if err := s.checkTypeRef(e.CalendarID, e.EventTypeID); err != nil {
		return Event{}, err
	}
	cur := st.value
	cur.Title = e.Title
	cur.Notes = e.Notes
	cur.Color = e.Color
	cur.Order = e.Order
	cur.StartDate = e.StartDate
	cur.EndDate = e.EndDate
	cur.EventTypeID = e.EventTypeID
	cur.UpdatedAt = s.now()
	st.value = cur
	s.events[e.ID] = st
	return s.withType(cur), nil
}

// DeleteEvent implements EventStore.
func (s *MemoryStore) DeleteEvent(_ context.Context, calendarID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.events[id]
	if !ok || st.value.CalendarID != calendarID {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

// DeleteEvents implements EventStore. Unknown ids are ignored.
func (s *MemoryStore) DeleteEvents(_ context.Context, calendarID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if st, ok := s.events[id]; ok && st.value.CalendarID == calendarID {
			delete(s.events, id)
		}
	}
	return nil
}

// DeleteAllEvents implements EventStore.
func (s *MemoryStore) DeleteAllEvents(_ context.Context, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.events {
		if st.value.CalendarID == calendarID {
			delete(s.events, id)
		}
	}
	return nil
}

// ReorderEvents implements EventStore: each event gets its index as order.
func (s *MemoryStore) ReorderEvents(_ context.Context, calendarID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if st, ok := s.events[id]; !ok || st.value.CalendarID != calendarID {
			return fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
	}
	for i, id := range ids {
		st := s.events[id]
		order := i
		st.value.Order = &order
		st.value.UpdatedAt = s.now()
		s.events[id] = st
	}
	return nil
}

// ListEventTypes implements EventTypeStore, ordered by name.
func (s *MemoryStore) ListEventTypes(_ context.Context, calendarID string) ([]EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EventType, 0)
	for _, st := range s.types {
		if st.value.CalendarID == calendarID {
			out = append(out, st.value)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetEventTypeByName implements EventTypeStore. The match is exact.
func (s *MemoryStore) GetEventTypeByName(_ context.Context, calendarID, name string) (EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.types {
		if st.value.CalendarID == calendarID && st.value.Name == name {
			return st.value, nil
		}
	}
	return EventType{}, fmt.Errorf("event type %q: %w", name, ErrNotFound)
}

func (s *MemoryStore) nameTaken(calendarID, name, exceptID string) bool {
	for id, st := range s.types {
		if id != exceptID && st.value.CalendarID == calendarID && st.value.Name == name {
			return true
		}
	}
	return false
}

// CreateEventType implements EventTypeStore.
func (s *MemoryStore) CreateEventType(_ context.Context, t EventType) (EventType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return EventType{}, fmt.Errorf("event type name is required")
	}
	if t.Color == "" {
		t.Color = DefaultTypeColor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(t.CalendarID, t.Name, "") {
		return EventType{}, fmt.Errorf("event type %q: %w", t.Name, ErrDuplicateName)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = s.now()
	s.types[t.ID] = stored[EventType]{seq: s.next(), value: t}
	return t, nil
}

// UpsertEventType implements EventTypeStore: it updates the type with t.ID
// or creates it with that id.
func (s *MemoryStore) UpsertEventType(_ context.Context, t EventType) (EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(t.CalendarID, t.Name, t.ID) {
		return EventType{}, fmt.Errorf("event type %q: %w", t.Name, ErrDuplicateName)
	}
	if st, ok := s.types[t.ID]; ok {
		st.value.Name = t.Name
		st.value.Color = t.Color
		s.types[t.ID] = st
		return st.value, nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = s.now()
	s.types[t.ID] = stored[EventType]{seq: s.next(), value: t}
	return t, nil
}

// deleteTypeLocked removes a type and clears references to it.
func (s *MemoryStore) deleteTypeLocked(id string) {
	delete(s.types, id)
	for eid, st := range s.events {
		if st.value.EventTypeID == id {
			st.value.EventTypeID = ""
			s.events[eid] = st
		}
	}
}

// DeleteEventType implements EventTypeStore. Events keep existing, untyped.
func (s *MemoryStore) DeleteEventType(_ context.Context, calendarID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.types[id]
	if !ok || st.value.CalendarID != calendarID {
		return fmt.Errorf("event type %s: %w", id, ErrNotFound)
	}
	s.deleteTypeLocked(id)
	return nil
}

// DeleteEventTypesExcept implements EventTypeStore.
func (s *MemoryStore) DeleteEventTypesExcept(_ context.Context, calendarID string, keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.types {
		if st.value.CalendarID == calendarID && !slices.Contains(keep, id) {
			s.deleteTypeLocked(id)
		}
	}
	return nil
}

// CreatePrompt implements PromptStore.
func (s *MemoryStore) CreatePrompt(_ context.Context, p Prompt) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPromptLocked(p), nil
}

func (s *MemoryStore) createPromptLocked(p Prompt) Prompt {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = s.now()
	s.prompts[p.ID] = stored[Prompt]{seq: s.next(), value: p}
	return p
}

func (s *MemoryStore) sortedPrompts(calendarID string) []stored[Prompt] {
	var out []stored[Prompt]
	for _, st := range s.prompts {
		if st.value.CalendarID == calendarID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// ListPrompts implements PromptStore.
func (s *MemoryStore) ListPrompts(_ context.Context, calendarID string, limit int) ([]Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Prompt, 0)
	for _, st := range s.sortedPrompts(calendarID) {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, st.value)
	}
	return out, nil
}

// DeletePrompt implements PromptStore. Linked events are unlinked; a
// snapshot attached to the prompt goes with it.
func (s *MemoryStore) DeletePrompt(_ context.Context, calendarID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.prompts[id]
	if !ok || st.value.CalendarID != calendarID {
		return fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	delete(s.prompts, id)
	for eid, ev := range s.events {
		if ev.value.PromptID == id {
			ev.value.PromptID = ""
			s.events[eid] = ev
		}
	}
	for sid, snap := range s.snapshots {
		if snap.value.PromptID == id {
			delete(s.snapshots, sid)
		}
	}
	return nil
}

// LinkEvents implements PromptStore.
func (s *MemoryStore) LinkEvents(_ context.Context, calendarID, promptID string, eventIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.prompts[promptID]; !ok || st.value.CalendarID != calendarID {
		return fmt.Errorf("prompt %s: %w", promptID, ErrNotFound)
	}
	for _, id := range eventIDs {
		if st, ok := s.events[id]; ok && st.value.CalendarID == calendarID {
			st.value.PromptID = promptID
			s.events[id] = st
		}
	}
	return nil
}

// LatestPromptWithEvents implements PromptStore.
func (s *MemoryStore) LatestPromptWithEvents(_ context.Context, calendarID string) (Prompt, []Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.sortedPrompts(calendarID) {
		var linked []Event
		seqs := make(map[string]int64)
		for id, st := range s.events {
			if st.value.PromptID == p.value.ID {
				linked = append(linked, s.withType(st.value))
				seqs[id] = st.seq
			}
		}
		if len(linked) > 0 {
			sortEvents(linked, seqs)
			return p.value, linked, nil
		}
	}
	return Prompt{}, nil, fmt.Errorf("prompt with events: %w", ErrNotFound)
}

// CreateSnapshot implements SnapshotStore.
func (s *MemoryStore) CreateSnapshot(_ context.Context, p Prompt, snap Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[p.CalendarID]; !ok {
		return Snapshot{}, fmt.Errorf("calendar %s: %w", p.CalendarID, ErrNotFound)
	}
	p = s.createPromptLocked(p)
	snap.ID = uuid.NewString()
	snap.CalendarID = p.CalendarID
	snap.PromptID = p.ID
	snap.CreatedAt = p.CreatedAt
	snap.Prompt = nil
	s.snapshots[snap.ID] = stored[Snapshot]{seq: s.next(), value: snap}
	snap.Prompt = &p
	return snap, nil
}

func (s *MemoryStore) withPrompt(snap Snapshot) Snapshot {
	if p, ok := s.prompts[snap.PromptID]; ok {
		pv := p.value
		snap.Prompt = &pv
	}
	return snap
}

// GetSnapshot implements SnapshotStore.
func (s *MemoryStore) GetSnapshot(_ context.Context, calendarID, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.snapshots[id]
	if !ok || st.value.CalendarID != calendarID {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return s.withPrompt(st.value), nil
}

// ListSnapshots implements SnapshotStore, newest first.
func (s *MemoryStore) ListSnapshots(_ context.Context, calendarID string, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []stored[Snapshot]
	for _, st := range s.snapshots {
		if st.value.CalendarID == calendarID {
			all = append(all, st)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })
	out := make([]Snapshot, 0, len(all))
	for _, st := range all {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.withPrompt(st.value))
	}
	return out, nil
}
