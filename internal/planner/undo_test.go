package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/history"
	"github.com/teemow/calprompt/internal/interpret"
)

// shape drops ids and timestamps so states can be compared across undo.
type shape struct {
	Title string
	Start string
	End   string
	Type  string
}

func shapes(t *testing.T, store calendar.EventStore, calendarID string) []shape {
	t.Helper()
	events, err := store.ListEvents(context.Background(), calendarID)
	require.NoError(t, err)
	out := make([]shape, 0, len(events))
	for _, e := range events {
		out = append(out, shape{
			Title: e.Title,
			Start: e.StartDate.Format("2006-01-02"),
			End:   e.EndDate.Format("2006-01-02"),
			Type:  e.TypeName(),
		})
	}
	return out
}

func TestService_UndoRestoresEveryStep(t *testing.T) {
	ctx := context.Background()
	svc, store, cal := newTestService(t, nil)
	work, err := store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Work"})
	require.NoError(t, err)
	mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Seed", StartDate: day(3, 1), EndDate: day(3, 1)})

	var states [][]shape
	step := func(fn func() error) {
		states = append(states, shapes(t, store, cal.ID))
		require.NoError(t, fn())
	}

	var training calendar.Event
	step(func() (err error) {
		training, err = svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "Training", StartDate: day(3, 2), EndDate: day(3, 11), EventTypeID: work.ID})
		return err
	})
	step(func() error {
		title := "Training (renamed)"
		_, err := svc.UpdateEvent(ctx, cal.ID, training.ID, calendar.EventPatch{Title: &title})
		return err
	})
	step(func() error {
		_, err := svc.SplitEvent(ctx, cal.ID, training.ID, SplitRequest{Date: day(3, 7), Mode: SplitExclude})
		return err
	})
	step(func() error {
		events, err := store.ListEvents(ctx, cal.ID)
		if err != nil {
			return err
		}
		return svc.DeleteEvent(ctx, cal.ID, events[0].ID)
	})

	for i := len(states) - 1; i >= 0; i-- {
		out, err := svc.Undo(ctx, cal.ID)
		require.NoError(t, err)
		assert.Equal(t, TierLocal, out.Tier)
		assert.Empty(t, out.Warnings)
		assert.Equal(t, states[i], shapes(t, store, cal.ID), "undo step %d", i)
	}

	_, err = svc.Undo(ctx, cal.ID)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestService_UndoLocalReportsChanges(t *testing.T) {
	ctx := context.Background()
	svc, store, cal := newTestService(t, nil)
	keep := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Keep", StartDate: day(3, 2), EndDate: day(3, 2)})

	created, err := svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "New", StartDate: day(3, 3), EndDate: day(3, 3)})
	require.NoError(t, err)

	out, err := svc.Undo(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, "create", out.Label)
	assert.Equal(t, []string{created.ID}, out.DeletedEventIDs)
	require.Len(t, out.CurrentEvents, 1)
	assert.Equal(t, keep.ID, out.CurrentEvents[0].ID)
	assert.NotNil(t, out.CurrentEventTypes)
	assert.Nil(t, out.UndonePrompt)
}

func TestService_UndoLocalWarnsAboutMissingTypes(t *testing.T) {
	ctx := context.Background()
	svc, store, cal := newTestService(t, nil)
	sport, err := store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Sport"})
	require.NoError(t, err)
	run := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Run", StartDate: day(3, 2), EndDate: day(3, 2), EventTypeID: sport.ID})

	require.NoError(t, svc.DeleteEvent(ctx, cal.ID, run.ID))
	require.NoError(t, store.DeleteEventType(ctx, cal.ID, sport.ID))

	out, err := svc.Undo(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Run")
	require.Len(t, out.CurrentEvents, 1)
	assert.Equal(t, "Run", out.CurrentEvents[0].Title)
	assert.Empty(t, out.CurrentEvents[0].EventTypeID)
}

func TestService_UndoFallsBackToPrompt(t *testing.T) {
	ctx := context.Background()
	interp := &fakeInterpreter{outcome: interpret.Outcome{Result: interpret.Result{
		Interpretation: "Two trainings",
		Actions: []interpret.Action{
			interpret.CreateAction{Event: interpret.EventFields{Title: "A", StartDate: day(3, 2), EndDate: day(3, 3)}},
			interpret.CreateAction{Event: interpret.EventFields{Title: "B", StartDate: day(3, 9), EndDate: day(3, 10)}},
		},
	}}}
	svc, store, cal := newTestService(t, interp)
	manual := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Manual", StartDate: day(3, 5), EndDate: day(3, 5)})

	first, err := svc.ProcessPrompt(ctx, cal.ID, "first")
	require.NoError(t, err)
	second, err := svc.ProcessPrompt(ctx, cal.ID, "second")
	require.NoError(t, err)

	// Simulate a lost local stack.
	require.NoError(t, svc.history.Clear(ctx, cal.ID))

	out, err := svc.Undo(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, TierPrompt, out.Tier)
	require.NotNil(t, out.UndonePrompt)
	assert.Equal(t, second.Prompt.ID, out.UndonePrompt.ID)
	assert.ElementsMatch(t, second.Applied.CreatedIDs(), out.DeletedEventIDs)
	assert.Len(t, out.CurrentEvents, 3)

	prompts, err := store.ListPrompts(ctx, cal.ID, 0)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, first.Prompt.ID, prompts[0].ID)

	out, err = svc.Undo(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Prompt.ID, out.UndonePrompt.ID)
	require.Len(t, out.CurrentEvents, 1)
	assert.Equal(t, manual.ID, out.CurrentEvents[0].ID)

	_, err = svc.Undo(ctx, cal.ID)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

// brokenHistory fails every call.
type brokenHistory struct{}

func (brokenHistory) Push(context.Context, string, history.Entry) error { return errors.New("down") }
func (brokenHistory) Pop(context.Context, string) (history.Entry, bool, error) {
	return history.Entry{}, false, errors.New("down")
}
func (brokenHistory) Len(context.Context, string) (int, error) { return 0, errors.New("down") }
func (brokenHistory) Clear(context.Context, string) error      { return errors.New("down") }

func TestService_UndoWithBrokenHistory(t *testing.T) {
	ctx := context.Background()
	store := calendar.NewMemoryStore()
	cal, err := store.CreateCalendar(ctx, calendar.Calendar{Name: "Family"})
	require.NoError(t, err)
	svc, err := NewService(Config{Store: store, History: brokenHistory{}})
	require.NoError(t, err)

	_, err = svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "Still works", StartDate: day(3, 2), EndDate: day(3, 2)})
	require.NoError(t, err)

	_, err = svc.Undo(ctx, cal.ID)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = svc.Undo(ctx, "missing")
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}

// corruptHistory has one unreadable entry on top of its stack.
type corruptHistory struct {
	history.Store
	corrupt bool
}

func (h *corruptHistory) Pop(ctx context.Context, calendarID string) (history.Entry, bool, error) {
	if h.corrupt {
		h.corrupt = false
		return history.Entry{}, true, fmt.Errorf("%w: unexpected end of JSON input", history.ErrCorruptEntry)
	}
	return h.Store.Pop(ctx, calendarID)
}

func TestService_UndoUnreadableEntry(t *testing.T) {
	ctx := context.Background()
	store := calendar.NewMemoryStore()
	cal, err := store.CreateCalendar(ctx, calendar.Calendar{Name: "Family"})
	require.NoError(t, err)
	h := &corruptHistory{Store: history.NewMemoryStore()}
	svc, err := NewService(Config{Store: store, History: h})
	require.NoError(t, err)

	p, err := store.CreatePrompt(ctx, calendar.Prompt{CalendarID: cal.ID, Content: "plan"})
	require.NoError(t, err)
	planned := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Planned", StartDate: day(3, 2), EndDate: day(3, 2)})
	require.NoError(t, store.LinkEvents(ctx, cal.ID, p.ID, []string{planned.ID}))
	h.corrupt = true

	out, err := svc.Undo(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, TierLocal, out.Tier)
	assert.Nil(t, out.UndonePrompt)
	assert.Empty(t, out.DeletedEventIDs)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "unreadable")
	require.Len(t, out.CurrentEvents, 1)
	assert.Equal(t, planned.ID, out.CurrentEvents[0].ID)

	out, err = svc.Undo(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, TierPrompt, out.Tier)
	assert.Equal(t, []string{planned.ID}, out.DeletedEventIDs)
}

func TestService_UndoCapacity(t *testing.T) {
	ctx := context.Background()
	svc, _, cal := newTestService(t, nil)
	for i := 0; i < history.Capacity+5; i++ {
		_, err := svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "E", StartDate: day(3, 2), EndDate: day(3, 2)})
		require.NoError(t, err)
	}
	for i := 0; i < history.Capacity; i++ {
		_, err := svc.Undo(ctx, cal.ID)
		require.NoError(t, err)
	}
	events, err := svc.ListEvents(ctx, cal.ID)
	require.NoError(t, err)
	assert.Len(t, events, 5)

	_, err = svc.Undo(ctx, cal.ID)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}
