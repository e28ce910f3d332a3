package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
)

// CreateSnapshot stores the current events and types under name. An empty
// name is replaced by "Snapshot <day/month/year>".
func (s *Service) CreateSnapshot(ctx context.Context, calendarID, name string) (calendar.Snapshot, error) {
	name = strings.TrimSpace(name)
	_, events, types, err := s.load(ctx, calendarID)
	if err != nil {
		return calendar.Snapshot{}, err
	}
	state, err := EncodeState(events, types)
	if err != nil {
		return calendar.Snapshot{}, err
	}

	content := "Snapshot: untitled"
	snapshotName := "Snapshot " + s.now().Format("02/01/2006")
	if name != "" {
		content = "Snapshot: " + name
		snapshotName = name
	}
	snap, err := s.store.CreateSnapshot(ctx,
		calendar.Prompt{CalendarID: calendarID, Content: content, SnapshotName: snapshotName},
		calendar.Snapshot{CalendarID: calendarID, State: state})
	if err != nil {
		return calendar.Snapshot{}, fmt.Errorf("planner: failed to save snapshot: %w", err)
	}
	s.logger.Info("Created snapshot", logging.Calendar(calendarID), "snapshot", snap.ID, "events", len(events))
	return snap, nil
}

// ListSnapshots returns the newest snapshots.
func (s *Service) ListSnapshots(ctx context.Context, calendarID string) ([]calendar.Snapshot, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, calendarID, ListLimit)
}

// RestoreOutcome is the calendar after RestoreSnapshot.
type RestoreOutcome struct {
	Events       []calendar.Event
	EventTypes   []calendar.EventType
	SnapshotName string
}

// RestoreSnapshot replaces the calendar with a snapshot: every event is
// deleted, types missing from the snapshot are deleted, the snapshot's types
// are upserted by id and its events recreated with new ids. The local undo
// history is cleared since its entries no longer match the calendar.
func (s *Service) RestoreSnapshot(ctx context.Context, calendarID, snapshotID string) (RestoreOutcome, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return RestoreOutcome{}, err
	}
	snap, err := s.store.GetSnapshot(ctx, calendarID, snapshotID)
	if err != nil {
		return RestoreOutcome{}, err
	}
	st, err := DecodeState(snap.State)
	if err != nil {
		return RestoreOutcome{}, err
	}

	restore := func(store calendar.Store) error {
		return restoreState(ctx, store, calendarID, st)
	}
	if tx, ok := s.store.(calendar.Transactor); ok {
		err = tx.InTx(ctx, restore)
	} else {
		err = restore(s.store)
	}
	s.observe(ctx, calendarID, instrumentation.OperationRestore, err)
	if err != nil {
		return RestoreOutcome{}, fmt.Errorf("planner: failed to restore snapshot %s: %w", snapshotID, err)
	}

	if err := s.history.Clear(ctx, calendarID); err != nil {
		s.logger.Warn("Failed to clear undo history", logging.Calendar(calendarID), logging.Err(err))
	}

	out := RestoreOutcome{SnapshotName: snap.Name()}
	if out.Events, err = s.store.ListEvents(ctx, calendarID); err != nil {
		return RestoreOutcome{}, err
	}
	if out.EventTypes, err = s.store.ListEventTypes(ctx, calendarID); err != nil {
		return RestoreOutcome{}, err
	}
	return out, nil
}

func restoreState(ctx context.Context, store calendar.Store, calendarID string, st State) error {
	if err := store.DeleteAllEvents(ctx, calendarID); err != nil {
		return err
	}
	if err := store.DeleteEventTypesExcept(ctx, calendarID, st.typeIDs()); err != nil {
		return err
	}
	for _, t := range st.EventTypes {
		_, err := store.UpsertEventType(ctx, calendar.EventType{ID: t.ID, CalendarID: calendarID, Name: t.Name, Color: t.Color})
		if err != nil {
			return fmt.Errorf("event type %q: %w", t.Name, err)
		}
	}
	for _, e := range st.Events {
		ev := calendar.Event{
			CalendarID: calendarID,
			Title:      e.Title,
			Notes:      e.Notes,
			Color:      e.Color,
			StartDate:  e.StartDate,
			EndDate:    e.EndDate,
		}
		if e.EventTypeID != nil {
			ev.EventTypeID = *e.EventTypeID
		}
		if _, err := store.CreateEvent(ctx, ev); err != nil {
			return fmt.Errorf("event %q: %w", e.Title, err)
		}
	}
	return nil
}
