package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
)

// Direct edits. Each one records the event list before it changes so Undo
// can restore it.

// ListEvents returns the calendar's events with their types.
func (s *Service) ListEvents(ctx context.Context, calendarID string) ([]calendar.Event, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, calendarID)
}

// ListEventTypes returns the calendar's event types.
func (s *Service) ListEventTypes(ctx context.Context, calendarID string) ([]calendar.EventType, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return nil, err
	}
	return s.store.ListEventTypes(ctx, calendarID)
}

// CreateEvent adds e to the calendar.
func (s *Service) CreateEvent(ctx context.Context, calendarID string, e calendar.Event) (calendar.Event, error) {
	e.CalendarID = calendarID
	e.Normalize()
	if err := e.Validate(); err != nil {
		return calendar.Event{}, err
	}
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return calendar.Event{}, err
	}
	if err := s.snapshotBefore(ctx, calendarID, instrumentation.OperationCreate); err != nil {
		return calendar.Event{}, err
	}
	ev, err := s.store.CreateEvent(ctx, e)
	s.observe(ctx, calendarID, instrumentation.OperationCreate, err)
	return ev, err
}

// UpdateEvent applies patch to one event. Fields left nil keep their value.
func (s *Service) UpdateEvent(ctx context.Context, calendarID, eventID string, patch calendar.EventPatch) (calendar.Event, error) {
	cur, err := s.store.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return calendar.Event{}, err
	}
	patch.Apply(&cur)
	if err := cur.Validate(); err != nil {
		return calendar.Event{}, err
	}
	if err := s.snapshotBefore(ctx, calendarID, instrumentation.OperationUpdate); err != nil {
		return calendar.Event{}, err
	}
	ev, err := s.store.UpdateEvent(ctx, cur)
	s.observe(ctx, calendarID, instrumentation.OperationUpdate, err)
	return ev, err
}

// DeleteEvent removes one event.
func (s *Service) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if _, err := s.store.GetEvent(ctx, calendarID, eventID); err != nil {
		return err
	}
	if err := s.snapshotBefore(ctx, calendarID, instrumentation.OperationDelete); err != nil {
		return err
	}
	err := s.store.DeleteEvent(ctx, calendarID, eventID)
	s.observe(ctx, calendarID, instrumentation.OperationDelete, err)
	return err
}

// ReorderEvents gives every listed event its index as display order.
func (s *Service) ReorderEvents(ctx context.Context, calendarID string, eventIDs []string) ([]calendar.Event, error) {
	if len(eventIDs) == 0 {
		return nil, fmt.Errorf("%w: no event ids to reorder", calendar.ErrInvalidEvent)
	}
	events, err := s.ListEvents(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(events))
	for _, e := range events {
		known[e.ID] = true
	}
	for _, id := range eventIDs {
		if !known[id] {
			return nil, fmt.Errorf("event %s: %w", id, calendar.ErrNotFound)
		}
	}
	s.record(ctx, calendarID, instrumentation.OperationReorder, events)

	err = s.store.ReorderEvents(ctx, calendarID, eventIDs)
	s.observe(ctx, calendarID, instrumentation.OperationReorder, err)
	if err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, calendarID)
}

// SplitOutcome lists the events that replaced a split event.
type SplitOutcome struct {
	Created   []calendar.Event `json:"createdEvents"`
	DeletedID string           `json:"deletedEventId"`
}

// SplitEvent cuts an event around req.Date. The days before and after keep
// the event's title, notes, color and type. SplitExclude drops the clicked
// day, widened to the days off around it when it is not a working day.
// SplitReplace recreates exactly the clicked day titled req.Title. The
// original event is deleted once the segments exist.
func (s *Service) SplitEvent(ctx context.Context, calendarID, eventID string, req SplitRequest) (SplitOutcome, error) {
	if err := req.validate(); err != nil {
		return SplitOutcome{}, err
	}
	orig, err := s.store.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return SplitOutcome{}, err
	}
	day := dates.Midnight(req.Date)
	cut := DateRange{Start: day, End: day}
	if req.Mode == SplitExclude {
		hols := holidays.PublicRange(orig.StartDate.Year(), orig.EndDate.Year())
		cut = DaysOff(day, DateRange{Start: orig.StartDate, End: orig.EndDate}, hols)
	}
	before, after, err := SplitRange(orig, cut)
	if err != nil {
		return SplitOutcome{}, err
	}

	var segments []calendar.Event
	if before != nil {
		segments = append(segments, segment(orig, *before))
	}
	if req.Mode == SplitReplace {
		replaced := segment(orig, DateRange{Start: day, End: day})
		replaced.Title = strings.TrimSpace(req.Title)
		segments = append(segments, replaced)
	}
	if after != nil {
		segments = append(segments, segment(orig, *after))
	}

	if err := s.snapshotBefore(ctx, calendarID, instrumentation.OperationSplit); err != nil {
		return SplitOutcome{}, err
	}

	out := SplitOutcome{Created: make([]calendar.Event, 0, len(segments))}
	for _, seg := range segments {
		ev, err := s.store.CreateEvent(ctx, seg)
		if err != nil {
			s.observe(ctx, calendarID, instrumentation.OperationSplit, err)
			return out, fmt.Errorf("planner: failed to create split segment: %w", err)
		}
		out.Created = append(out.Created, ev)
	}
	err = s.store.DeleteEvent(ctx, calendarID, eventID)
	s.observe(ctx, calendarID, instrumentation.OperationSplit, err)
	if err != nil {
		return out, err
	}
	out.DeletedID = eventID
	return out, nil
}

func (s *Service) observe(ctx context.Context, calendarID, op string, err error) {
	if err != nil {
		s.logger.Error("Calendar operation failed", logging.Calendar(calendarID), logging.Operation(op), logging.Err(err))
		s.metrics.RecordCalendarAction(ctx, calendarID, op, instrumentation.StatusError)
		return
	}
	s.logger.Debug("Calendar operation", logging.Calendar(calendarID), logging.Operation(op))
	s.metrics.RecordCalendarAction(ctx, calendarID, op, instrumentation.StatusSuccess)
}
