package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/interpret"
	"github.com/teemow/calprompt/internal/logging"
)

// ApplyStore is the part of calendar.Store the applier writes to.
type ApplyStore interface {
	calendar.EventStore
	calendar.EventTypeStore
}

// Skipped describes an action that was not applied.
type Skipped struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Applied summarises what an interpretation changed.
type Applied struct {
	Created       []calendar.Event     `json:"createdEvents"`
	Updated       []calendar.Event     `json:"updatedEvents"`
	DeletedIDs    []string             `json:"deletedEventIds"`
	NewEventTypes []calendar.EventType `json:"newEventTypes"`
	Skipped       []Skipped            `json:"skipped"`
}

func newApplied() Applied {
	return Applied{
		Created:       []calendar.Event{},
		Updated:       []calendar.Event{},
		DeletedIDs:    []string{},
		NewEventTypes: []calendar.EventType{},
		Skipped:       []Skipped{},
	}
}

func (a Applied) CreatedCount() int { return len(a.Created) }
func (a Applied) UpdatedCount() int { return len(a.Updated) }
func (a Applied) DeletedCount() int { return len(a.DeletedIDs) }

// CreatedIDs returns the ids of the created events.
func (a Applied) CreatedIDs() []string {
	ids := make([]string, 0, len(a.Created))
	for _, e := range a.Created {
		ids = append(ids, e.ID)
	}
	return ids
}

// Applier writes the actions of an interpretation to a calendar.
type Applier struct {
	store   ApplyStore
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// NewApplier creates an Applier. A nil logger discards output.
func NewApplier(store ApplyStore, logger logging.Logger, metrics *instrumentation.Metrics) *Applier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Applier{store: store, logger: logger, metrics: metrics}
}

// Apply creates the proposed event types, then runs the actions one by one
// in array order. existing are the calendar's types before the call.
//
// A malformed action, an unknown id or a store rejection skips that action
// only; the rest of the batch still runs. Only a failure to create an event
// type aborts, since later actions may depend on it.
func (a *Applier) Apply(ctx context.Context, calendarID string, result interpret.Result, existing []calendar.EventType) (Applied, error) {
	ctx, span := instrumentation.StartSpan(ctx, "apply",
		instrumentation.NewSpanAttributeBuilder().
			WithCalendar(calendarID).
			WithCount(len(result.Actions)).
			Build()...)
	defer span.End()

	applied := newApplied()

	created, err := a.ensureTypes(ctx, calendarID, result.NewEventTypes, existing)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return applied, err
	}
	applied.NewEventTypes = created.list

	for i, action := range result.Actions {
		a.applyOne(ctx, calendarID, i, action, existing, created.byName, &applied)
	}

	a.logger.Info("Applied actions",
		logging.Calendar(calendarID),
		"created", applied.CreatedCount(),
		"updated", applied.UpdatedCount(),
		"deleted", applied.DeletedCount(),
		"skipped", len(applied.Skipped))
	instrumentation.SetSpanSuccess(span)
	return applied, nil
}

type newTypes struct {
	list   []calendar.EventType
	byName map[string]string
}

// ensureTypes reuses types whose name already exists exactly and creates
// the others with their suggested color.
func (a *Applier) ensureTypes(ctx context.Context, calendarID string, proposed []interpret.NewEventType, existing []calendar.EventType) (newTypes, error) {
	out := newTypes{list: []calendar.EventType{}, byName: make(map[string]string)}
	for _, nt := range proposed {
		if nt.Name == "" {
			continue
		}
		if id := exactType(existing, nt.Name); id != "" {
			out.byName[nt.Name] = id
			continue
		}
		if _, seen := out.byName[nt.Name]; seen {
			continue
		}

		color := nt.SuggestedColor
		if color == "" {
			color = calendar.DefaultTypeColor
		}
		t, err := a.store.CreateEventType(ctx, calendar.EventType{CalendarID: calendarID, Name: nt.Name, Color: color})
		if errors.Is(err, calendar.ErrDuplicateName) {
			t, err = a.store.GetEventTypeByName(ctx, calendarID, nt.Name)
		}
		if err != nil {
			return out, fmt.Errorf("planner: failed to create event type %q: %w", nt.Name, err)
		}
		out.byName[nt.Name] = t.ID
		out.list = append(out.list, t)
	}
	return out, nil
}

func exactType(types []calendar.EventType, name string) string {
	for _, t := range types {
		if t.Name == name {
			return t.ID
		}
	}
	return ""
}

// resolveType matches existing types case-insensitively first, then the
// types created for this result by exact name. Unknown names resolve to no
// type.
func resolveType(name string, existing []calendar.EventType, created map[string]string) string {
	if name == "" {
		return ""
	}
	if t, ok := calendar.FindType(existing, name); ok {
		return t.ID
	}
	return created[name]
}

func (a *Applier) applyOne(ctx context.Context, calendarID string, i int, action interpret.Action, existing []calendar.EventType, created map[string]string, applied *Applied) {
	skip := func(id, reason string) {
		applied.Skipped = append(applied.Skipped, Skipped{Index: i, Action: action.Kind(), ID: id, Reason: reason})
		a.logger.Warn("Skipped action", logging.Calendar(calendarID), "index", i, "action", action.Kind(), "reason", reason)
		a.metrics.RecordCalendarAction(ctx, calendarID, action.Kind(), instrumentation.StatusSkipped)
	}
	fail := func(id string, err error) {
		applied.Skipped = append(applied.Skipped, Skipped{Index: i, Action: action.Kind(), ID: id, Reason: err.Error()})
		a.logger.Error("Action failed", logging.Calendar(calendarID), "index", i, "action", action.Kind(), logging.Err(err))
		a.metrics.RecordCalendarAction(ctx, calendarID, action.Kind(), instrumentation.StatusError)
	}
	done := func() {
		a.metrics.RecordCalendarAction(ctx, calendarID, action.Kind(), instrumentation.StatusSuccess)
	}

	switch act := action.(type) {
	case interpret.CreateAction:
		e := calendar.Event{
			CalendarID:  calendarID,
			Title:       act.Event.Title,
			StartDate:   act.Event.StartDate,
			EndDate:     act.Event.EndDate,
			EventTypeID: resolveType(act.Event.EventType, existing, created),
		}
		if act.Event.Notes != nil {
			e.Notes = *act.Event.Notes
		}
		ev, err := a.store.CreateEvent(ctx, e)
		if err != nil {
			fail("", err)
			return
		}
		applied.Created = append(applied.Created, ev)
		done()

	case interpret.UpdateAction:
		cur, err := a.store.GetEvent(ctx, calendarID, act.ID)
		if errors.Is(err, calendar.ErrNotFound) {
			skip(act.ID, "event not found")
			return
		}
		if err != nil {
			fail(act.ID, err)
			return
		}
		if act.Event.Title != "" {
			cur.Title = act.Event.Title
		}
		if act.Event.Notes != nil {
			cur.Notes = *act.Event.Notes
		}
		cur.StartDate = act.Event.StartDate
		cur.EndDate = act.Event.EndDate
		cur.EventTypeID = resolveType(act.Event.EventType, existing, created)
		ev, err := a.store.UpdateEvent(ctx, cur)
		if err != nil {
			fail(act.ID, err)
			return
		}
		applied.Updated = append(applied.Updated, ev)
		done()

	case interpret.DeleteAction:
		err := a.store.DeleteEvent(ctx, calendarID, act.ID)
		if errors.Is(err, calendar.ErrNotFound) {
			skip(act.ID, "event not found")
			return
		}
		if err != nil {
			fail(act.ID, err)
			return
		}
		applied.DeletedIDs = append(applied.DeletedIDs, act.ID)
		done()

	case interpret.InvalidAction:
		skip("", act.Reason)

	default:
		skip("", fmt.Sprintf("unsupported action %T", action))
	}
}
