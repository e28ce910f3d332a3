package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/interpret"
	"github.com/teemow/calprompt/internal/tools/date_tools"
)

var testNow = time.Date(2026, time.March, 1, 9, 30, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return dates.Date(2026, m, d)
}

// fakeInterpreter returns a fixed outcome and records what it was asked.
type fakeInterpreter struct {
	outcome     interpret.Outcome
	calls       int
	system      string
	instruction string
	calendarID  string
}

func (f *fakeInterpreter) Interpret(ctx context.Context, system, instruction string) interpret.Outcome {
	f.calls++
	f.system = system
	f.instruction = instruction
	f.calendarID = date_tools.CalendarIDFromContext(ctx)
	return f.outcome
}

func newTestService(t *testing.T, interp Interpreter) (*Service, *calendar.MemoryStore, calendar.Calendar) {
	t.Helper()
	store := calendar.NewMemoryStore()
	cal, err := store.CreateCalendar(context.Background(), calendar.Calendar{Name: "Family", SchoolZone: "B"})
	require.NoError(t, err)
	svc, err := NewService(Config{Store: store, Interpreter: interp, Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	return svc, store, cal
}

func mustEvent(t *testing.T, store calendar.EventStore, e calendar.Event) calendar.Event {
	t.Helper()
	ev, err := store.CreateEvent(context.Background(), e)
	require.NoError(t, err)
	return ev
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestService_ProcessPrompt(t *testing.T) {
	ctx := context.Background()
	interp := &fakeInterpreter{}
	svc, store, cal := newTestService(t, interp)
	old := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Old", StartDate: day(5, 14), EndDate: day(5, 15)})

	interp.outcome = interpret.Outcome{
		Iterations: 2,
		Result: interpret.Result{
			Interpretation: "Training and cleanup",
			NewEventTypes:  []interpret.NewEventType{{Name: "Work", SuggestedColor: "#ff0000"}},
			Actions: []interpret.Action{
				interpret.CreateAction{Event: interpret.EventFields{Title: "Training", StartDate: day(3, 2), EndDate: day(3, 6), EventType: "Work"}},
				interpret.DeleteAction{ID: old.ID},
			},
			Warnings:  []string{},
			Questions: []string{"Which room?"},
		},
	}

	out, err := svc.ProcessPrompt(ctx, cal.ID, "  training first week of March, drop the old one ")
	require.NoError(t, err)

	assert.Equal(t, 1, interp.calls)
	assert.Equal(t, "training first week of March, drop the old one", interp.instruction)
	assert.Equal(t, cal.ID, interp.calendarID)
	assert.Contains(t, interp.system, "Today: dimanche 2026-03-01")
	assert.Contains(t, interp.system, `[id: `+old.ID+`] "Old"`)
	assert.Contains(t, interp.system, "⚠️ INCLUDES HOLIDAY(S): Ascension (2026-05-14)")

	assert.Equal(t, 2, out.Iterations)
	assert.Equal(t, "Training and cleanup", out.Result.Interpretation)
	assert.Equal(t, 1, out.Applied.CreatedCount())
	assert.Equal(t, 1, out.Applied.DeletedCount())
	require.Len(t, out.Applied.NewEventTypes, 1)

	assert.Equal(t, "training first week of March, drop the old one", out.Prompt.Content)
	assert.Equal(t, "Training and cleanup", out.Prompt.Interpretation)
	prompt, linked, err := store.LatestPromptWithEvents(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Prompt.ID, prompt.ID)
	require.Len(t, linked, 1)
	assert.Equal(t, "Training", linked[0].Title)

	n, err := svc.history.Len(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_ProcessPrompt_Warnings(t *testing.T) {
	ctx := context.Background()
	interp := &fakeInterpreter{outcome: interpret.Outcome{Result: interpret.TruncatedResult(), Iterations: 1}}
	svc, store, cal := newTestService(t, interp)

	out, err := svc.ProcessPrompt(ctx, cal.ID, "a very long plan")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Result.Warnings)
	assert.Zero(t, out.Applied.CreatedCount())

	prompts, err := store.ListPrompts(ctx, cal.ID, 0)
	require.NoError(t, err)
	assert.Len(t, prompts, 1)

	n, err := svc.history.Len(ctx, cal.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_ProcessPrompt_Cancelled(t *testing.T) {
	ctx := context.Background()
	interp := &fakeInterpreter{outcome: interpret.Outcome{Result: interpret.CancelledResult(), Err: context.Canceled}}
	svc, store, cal := newTestService(t, interp)

	_, err := svc.ProcessPrompt(ctx, cal.ID, "anything")
	assert.ErrorIs(t, err, context.Canceled)

	prompts, err := store.ListPrompts(ctx, cal.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, prompts)
}

func TestService_ProcessPrompt_Errors(t *testing.T) {
	interp := &fakeInterpreter{}
	svc, _, cal := newTestService(t, interp)

	_, err := svc.ProcessPrompt(context.Background(), cal.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	_, err = svc.ProcessPrompt(context.Background(), "missing", "plan")
	assert.ErrorIs(t, err, calendar.ErrNotFound)
	assert.Zero(t, interp.calls)
}

func TestService_Synthesize(t *testing.T) {
	ctx := context.Background()
	interp := &fakeInterpreter{}
	svc, store, cal := newTestService(t, interp)
	dentist := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Dentist", StartDate: day(3, 4), EndDate: day(3, 4)})

	interp.outcome = interpret.Outcome{Result: interpret.Result{
		Interpretation: "Removed the dentist",
		Actions:        []interpret.Action{interpret.DeleteAction{ID: dentist.ID}},
	}}

	out, err := svc.Synthesize(ctx, cal.ID, nil, "no more dentist")
	require.NoError(t, err)
	assert.Equal(t, "Removed the dentist", out.Interpretation)
	assert.Empty(t, out.Events)
	assert.Equal(t, interpret.SynthesisInstruction("no more dentist"), interp.instruction)
	assert.Contains(t, interp.system, "[id:"+dentist.ID+"] Dentist")

	_, err = svc.Synthesize(ctx, cal.ID, nil, "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestService_SynthesizeUsesSuppliedEvents(t *testing.T) {
	interp := &fakeInterpreter{outcome: interpret.Outcome{Result: interpret.Result{Interpretation: "nothing"}}}
	svc, _, cal := newTestService(t, interp)

	current := []calendar.Event{{ID: "client-1", Title: "Draft", StartDate: day(3, 10), EndDate: day(3, 10)}}
	_, err := svc.Synthesize(context.Background(), cal.ID, current, "keep it")
	require.NoError(t, err)
	assert.Contains(t, interp.system, "[id:client-1] Draft")
}

func TestService_SynthesizeResolvesSuppliedTypes(t *testing.T) {
	ctx := context.Background()
	interp := &fakeInterpreter{outcome: interpret.Outcome{Result: interpret.Result{Interpretation: "nothing"}}}
	svc, store, cal := newTestService(t, interp)
	work, err := store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Work", Color: "#ff0000"})
	require.NoError(t, err)

	current := []calendar.Event{
		{ID: "client-1", Title: "Training", StartDate: day(3, 9), EndDate: day(3, 13), EventTypeID: work.ID},
		{ID: "client-2", Title: "Lunch", StartDate: day(3, 10), EndDate: day(3, 10), EventTypeID: "gone"},
	}
	_, err = svc.Synthesize(ctx, cal.ID, current, "keep it")
	require.NoError(t, err)
	assert.Contains(t, interp.system, "[id:client-1] Training | lundi 2026-03-09 → vendredi 2026-03-13 | type: Work")
	assert.Contains(t, interp.system, "[id:client-2] Lunch | mardi 2026-03-10 → mardi 2026-03-10 | type: none")
	assert.Nil(t, current[0].EventType)
}

func TestService_WithoutInterpreter(t *testing.T) {
	svc, _, cal := newTestService(t, nil)
	out, err := svc.ProcessPrompt(context.Background(), cal.ID, "plan")
	require.NoError(t, err)
	assert.Equal(t, interpret.UnavailableResult(), out.Result)
}

func TestService_EventOperations(t *testing.T) {
	ctx := context.Background()
	svc, _, cal := newTestService(t, nil)

	a, err := svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: " Trip ", StartDate: day(4, 4).Add(10 * time.Hour), EndDate: day(4, 8)})
	require.NoError(t, err)
	assert.Equal(t, "Trip", a.Title)
	assert.Equal(t, day(4, 4), a.StartDate)

	_, err = svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "Bad", StartDate: day(4, 8), EndDate: day(4, 4)})
	assert.ErrorIs(t, err, calendar.ErrInvalidEvent)
	_, err = svc.CreateEvent(ctx, "missing", calendar.Event{Title: "X", StartDate: day(4, 8), EndDate: day(4, 8)})
	assert.ErrorIs(t, err, calendar.ErrNotFound)

	b, err := svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "Dentist", StartDate: day(4, 4), EndDate: day(4, 4)})
	require.NoError(t, err)

	end := day(4, 10)
	updated, err := svc.UpdateEvent(ctx, cal.ID, a.ID, calendar.EventPatch{EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, "Trip", updated.Title)
	assert.Equal(t, end, updated.EndDate)

	early := day(4, 1)
	_, err = svc.UpdateEvent(ctx, cal.ID, a.ID, calendar.EventPatch{EndDate: &early})
	assert.ErrorIs(t, err, calendar.ErrInvalidEvent)

	events, err := svc.ReorderEvents(ctx, cal.ID, []string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, b.ID, events[0].ID)

	_, err = svc.ReorderEvents(ctx, cal.ID, []string{"ghost"})
	assert.ErrorIs(t, err, calendar.ErrNotFound)
	_, err = svc.ReorderEvents(ctx, cal.ID, nil)
	assert.ErrorIs(t, err, calendar.ErrInvalidEvent)

	require.NoError(t, svc.DeleteEvent(ctx, cal.ID, b.ID))
	assert.ErrorIs(t, svc.DeleteEvent(ctx, cal.ID, b.ID), calendar.ErrNotFound)

	n, err := svc.history.Len(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestService_CalendarsAndHolidays(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, nil)

	c, err := svc.CreateCalendar(ctx, " Work ", "")
	require.NoError(t, err)
	assert.Equal(t, "Work", c.Name)
	assert.Equal(t, "B", c.SchoolZone)

	_, err = svc.CreateCalendar(ctx, "Bad", "Z")
	assert.Error(t, err)

	c, err = svc.CreateCalendar(ctx, "Paris", "c")
	require.NoError(t, err)
	listing, err := svc.Holidays(ctx, c.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2026, listing.Year)
	assert.Len(t, listing.Public, 11)
	for _, s := range listing.School {
		assert.Contains(t, s.Zones, holidays.ZoneC)
	}
}
