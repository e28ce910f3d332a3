package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/interpret"
)

func TestApplier_Apply(t *testing.T) {
	ctx := context.Background()
	_, store, cal := newTestService(t, nil)

	work, err := store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Work", Color: "#ff0000"})
	require.NoError(t, err)
	standup := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Standup", Notes: "daily", StartDate: day(3, 2), EndDate: day(3, 2), EventTypeID: work.ID})
	old := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Old", StartDate: day(3, 3), EndDate: day(3, 3)})

	notes := "room 4"
	result := interpret.Result{
		Interpretation: "Plan March",
		NewEventTypes: []interpret.NewEventType{
			{Name: "Work", SuggestedColor: "#000000"},
			{Name: "Holiday", SuggestedColor: "#00ff00"},
			{Name: "Sport"},
		},
		Actions: []interpret.Action{
			interpret.CreateAction{Event: interpret.EventFields{Title: "Training", StartDate: day(3, 9), EndDate: day(3, 13), EventType: "work", Notes: &notes}},
			interpret.CreateAction{Event: interpret.EventFields{Title: "Trip", StartDate: day(4, 4), EndDate: day(4, 12), EventType: "Holiday"}},
			interpret.UpdateAction{ID: standup.ID, Event: interpret.EventFields{StartDate: day(3, 3), EndDate: day(3, 3), EventType: "Unknown"}},
			interpret.DeleteAction{ID: old.ID, Title: "Old"},
			interpret.DeleteAction{ID: "missing"},
			interpret.UpdateAction{ID: "missing", Event: interpret.EventFields{Title: "X", StartDate: day(3, 3), EndDate: day(3, 3)}},
			interpret.InvalidAction{Wire: "move", Reason: `unknown action "move"`},
			interpret.CreateAction{Event: interpret.EventFields{Title: "Backwards", StartDate: day(5, 5), EndDate: day(5, 1)}},
		},
	}

	existing, err := store.ListEventTypes(ctx, cal.ID)
	require.NoError(t, err)
	applied, err := NewApplier(store, nil, nil).Apply(ctx, cal.ID, result, existing)
	require.NoError(t, err)

	require.Len(t, applied.NewEventTypes, 2)
	assert.Equal(t, "Holiday", applied.NewEventTypes[0].Name)
	assert.Equal(t, "#00ff00", applied.NewEventTypes[0].Color)
	assert.Equal(t, "Sport", applied.NewEventTypes[1].Name)
	assert.Equal(t, calendar.DefaultTypeColor, applied.NewEventTypes[1].Color)

	require.Len(t, applied.Created, 2)
	assert.Equal(t, work.ID, applied.Created[0].EventTypeID)
	assert.Equal(t, "room 4", applied.Created[0].Notes)
	assert.Equal(t, applied.NewEventTypes[0].ID, applied.Created[1].EventTypeID)

	require.Len(t, applied.Updated, 1)
	updated := applied.Updated[0]
	assert.Equal(t, "Standup", updated.Title)
	assert.Equal(t, "daily", updated.Notes)
	assert.Equal(t, day(3, 3), updated.StartDate)
	assert.Empty(t, updated.EventTypeID)

	assert.Equal(t, []string{old.ID}, applied.DeletedIDs)

	require.Len(t, applied.Skipped, 4)
	indexes := make([]int, 0, len(applied.Skipped))
	for _, s := range applied.Skipped {
		indexes = append(indexes, s.Index)
	}
	assert.Equal(t, []int{4, 5, 6, 7}, indexes)
	assert.Equal(t, "event not found", applied.Skipped[0].Reason)
	assert.Equal(t, interpret.KindInvalid, applied.Skipped[2].Action)
	assert.Contains(t, applied.Skipped[3].Reason, "before")

	assert.Equal(t, 2, applied.CreatedCount())
	assert.Equal(t, 1, applied.UpdatedCount())
	assert.Equal(t, 1, applied.DeletedCount())

	types, err := store.ListEventTypes(ctx, cal.ID)
	require.NoError(t, err)
	assert.Len(t, types, 3)
}

func TestApplier_ArrayOrder(t *testing.T) {
	ctx := context.Background()
	_, store, cal := newTestService(t, nil)
	ev := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Trip", StartDate: day(3, 2), EndDate: day(3, 6)})

	// Delete then recreate: the second action must see the first one's effect.
	result := interpret.Result{Actions: []interpret.Action{
		interpret.DeleteAction{ID: ev.ID},
		interpret.CreateAction{Event: interpret.EventFields{Title: "Trip", StartDate: day(3, 2), EndDate: day(3, 4)}},
		interpret.UpdateAction{ID: ev.ID, Event: interpret.EventFields{StartDate: day(3, 2), EndDate: day(3, 3)}},
	}}
	applied, err := NewApplier(store, nil, nil).Apply(ctx, cal.ID, result, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, applied.DeletedCount())
	assert.Equal(t, 1, applied.CreatedCount())
	require.Len(t, applied.Skipped, 1)
	assert.Equal(t, 2, applied.Skipped[0].Index)

	events, err := store.ListEvents(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, day(3, 4), events[0].EndDate)
}

func TestApplier_EmptyResult(t *testing.T) {
	_, store, cal := newTestService(t, nil)
	applied, err := NewApplier(store, nil, nil).Apply(context.Background(), cal.ID, interpret.FailureResult(), nil)
	require.NoError(t, err)
	assert.NotNil(t, applied.Created)
	assert.NotNil(t, applied.DeletedIDs)
	assert.Zero(t, applied.CreatedCount()+applied.UpdatedCount()+applied.DeletedCount())
}
