package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/history"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
)

// Undo tiers.
const (
	TierLocal  = "local"
	TierPrompt = "prompt"
)

// UndoOutcome reports what Undo changed.
type UndoOutcome struct {
	Tier string
	// Label names the undone operation on the local tier.
	Label string
	// UndonePrompt is set on the prompt tier.
	UndonePrompt      *calendar.Prompt
	DeletedEventIDs   []string
	CurrentEvents     []calendar.Event
	CurrentEventTypes []calendar.EventType
	Warnings          []string
}

// Undo reverts the most recent change to the calendar.
//
// The local tier pops the newest history entry and reconciles the calendar
// with it: events absent from the entry are deleted, missing ones are
// recreated with new ids, and shared ones are overwritten. The entry is gone
// once popped, whatever happens during reconciliation; failed steps come
// back as warnings.
//
// An entry that was popped but cannot be read is consumed with a warning
// and leaves the calendar untouched.
//
// When the history is empty, the prompt tier deletes the newest prompt that
// still has linked events, together with those events. ErrNothingToUndo is
// returned when neither tier has anything.
func (s *Service) Undo(ctx context.Context, calendarID string) (UndoOutcome, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return UndoOutcome{}, err
	}

	entry, ok, err := s.history.Pop(ctx, calendarID)
	var out UndoOutcome
	switch {
	case errors.Is(err, history.ErrCorruptEntry):
		s.logger.Warn("Discarded unreadable undo entry", logging.Calendar(calendarID), logging.Err(err))
		out, err = UndoOutcome{
			Tier:            TierLocal,
			DeletedEventIDs: []string{},
			Warnings:        []string{"the last change could not be undone: its undo entry was unreadable"},
		}, nil
	case err != nil:
		s.logger.Warn("Undo history unavailable, falling back to prompt undo", logging.Calendar(calendarID), logging.Err(err))
		out, err = s.undoPrompt(ctx, calendarID)
	case ok:
		out, err = s.undoLocal(ctx, calendarID, entry)
	default:
		out, err = s.undoPrompt(ctx, calendarID)
	}
	if err != nil {
		if !errors.Is(err, ErrNothingToUndo) {
			s.observe(ctx, calendarID, instrumentation.OperationUndo, err)
		}
		return UndoOutcome{}, err
	}

	if out.CurrentEvents, err = s.store.ListEvents(ctx, calendarID); err != nil {
		return UndoOutcome{}, err
	}
	if out.CurrentEventTypes, err = s.store.ListEventTypes(ctx, calendarID); err != nil {
		return UndoOutcome{}, err
	}
	s.observe(ctx, calendarID, instrumentation.OperationUndo, nil)
	s.logger.Info("Undone", logging.Calendar(calendarID), "tier", out.Tier, "warnings", len(out.Warnings))
	return out, nil
}

func (s *Service) undoLocal(ctx context.Context, calendarID string, entry history.Entry) (UndoOutcome, error) {
	out := UndoOutcome{Tier: TierLocal, Label: entry.Label, DeletedEventIDs: []string{}, Warnings: []string{}}

	current, err := s.store.ListEvents(ctx, calendarID)
	if err != nil {
		return out, err
	}
	types, err := s.store.ListEventTypes(ctx, calendarID)
	if err != nil {
		return out, err
	}
	knownType := make(map[string]bool, len(types))
	for _, t := range types {
		knownType[t.ID] = true
	}

	wanted := make(map[string]bool, len(entry.Events))
	for _, e := range entry.Events {
		wanted[e.ID] = true
	}
	present := make(map[string]calendar.Event, len(current))
	for _, e := range current {
		present[e.ID] = e
	}

	for _, e := range current {
		if wanted[e.ID] {
			continue
		}
		if err := s.store.DeleteEvent(ctx, calendarID, e.ID); err != nil && !errors.Is(err, calendar.ErrNotFound) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("could not delete %q: %v", e.Title, err))
			continue
		}
		out.DeletedEventIDs = append(out.DeletedEventIDs, e.ID)
	}

	for _, e := range entry.Events {
		e.CalendarID = calendarID
		e.EventType = nil
		if e.EventTypeID != "" && !knownType[e.EventTypeID] {
			out.Warnings = append(out.Warnings, fmt.Sprintf("event type of %q no longer exists", e.Title))
			e.EventTypeID = ""
		}

		if _, ok := present[e.ID]; ok {
			if _, err := s.store.UpdateEvent(ctx, e); err != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("could not restore %q: %v", e.Title, err))
			}
			continue
		}
		if _, err := s.store.CreateEvent(ctx, e); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("could not recreate %q: %v", e.Title, err))
		}
	}
	return out, nil
}

func (s *Service) undoPrompt(ctx context.Context, calendarID string) (UndoOutcome, error) {
	prompt, events, err := s.store.LatestPromptWithEvents(ctx, calendarID)
	if errors.Is(err, calendar.ErrNotFound) {
		return UndoOutcome{}, ErrNothingToUndo
	}
	if err != nil {
		return UndoOutcome{}, err
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	if err := s.store.DeleteEvents(ctx, calendarID, ids); err != nil {
		return UndoOutcome{}, fmt.Errorf("planner: failed to delete events of prompt %s: %w", prompt.ID, err)
	}
	if err := s.store.DeletePrompt(ctx, calendarID, prompt.ID); err != nil {
		return UndoOutcome{}, fmt.Errorf("planner: failed to delete prompt %s: %w", prompt.ID, err)
	}
	return UndoOutcome{
		Tier:            TierPrompt,
		UndonePrompt:    &prompt,
		DeletedEventIDs: ids,
		Warnings:        []string{},
	}, nil
}
