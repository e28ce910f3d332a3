package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
)

func TestEncodeDecodeState(t *testing.T) {
	events := []calendar.Event{
		{ID: "e-1", Title: "Training", StartDate: day(3, 2), EndDate: day(3, 6), EventTypeID: "t-1", Notes: "room 4"},
		{ID: "e-2", Title: "Dentist", StartDate: day(3, 4), EndDate: day(3, 4)},
	}
	types := []calendar.EventType{{ID: "t-1", Name: "Work", Color: "#ff0000"}}

	data, err := EncodeState(events, types)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["rules"])
	first := raw["events"].([]any)[0].(map[string]any)
	assert.Equal(t, "2026-03-02T00:00:00Z", first["startDate"])
	assert.Equal(t, "t-1", first["eventTypeId"])
	second := raw["events"].([]any)[1].(map[string]any)
	assert.Nil(t, second["eventTypeId"])

	st, err := DecodeState(data)
	require.NoError(t, err)
	require.Len(t, st.Events, 2)
	assert.Equal(t, day(3, 6), st.Events[0].EndDate)
	assert.Equal(t, "room 4", st.Events[0].Notes)
	assert.Equal(t, []string{"t-1"}, st.typeIDs())
}

func TestDecodeState_Compatibility(t *testing.T) {
	blob := `{
		"events": [{"id": "x", "title": "Trip", "startDate": "2026-04-04T00:00:00.000Z", "endDate": "2026-04-08T00:00:00.000Z", "eventTypeId": null, "extra": 1}],
		"eventTypes": [],
		"rules": [{"id": "r", "description": "no weekends"}]
	}`
	st, err := DecodeState([]byte(blob))
	require.NoError(t, err)
	require.Len(t, st.Events, 1)
	assert.Equal(t, day(4, 4), st.Events[0].StartDate)
	assert.Nil(t, st.Events[0].EventTypeID)
	assert.Len(t, st.Rules, 1)

	_, err = DecodeState([]byte(`{"events": "nope"}`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestDecodeState_Dates(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "plain dates", start: "2026-03-02", end: "2026-03-06"},
		{name: "timestamps", start: "2026-03-02T00:00:00Z", end: "2026-03-06T00:00:00.000Z"},
		{name: "mixed", start: "2026-03-02", end: "2026-03-06T00:00:00Z"},
		{name: "missing end", start: "2026-03-02", wantErr: true},
		{name: "garbage", start: "March 2nd", end: "2026-03-06", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := fmt.Sprintf(`{"events": [{"id": "e", "title": "Training", "startDate": %q, "endDate": %q, "eventTypeId": "t-1"}], "eventTypes": []}`, tt.start, tt.end)
			st, err := DecodeState([]byte(blob))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSnapshot)
				return
			}
			require.NoError(t, err)
			require.Len(t, st.Events, 1)
			assert.Equal(t, day(3, 2), st.Events[0].StartDate)
			assert.Equal(t, day(3, 6), st.Events[0].EndDate)
			assert.Equal(t, "Training", st.Events[0].Title)
			require.NotNil(t, st.Events[0].EventTypeID)
			assert.Equal(t, "t-1", *st.Events[0].EventTypeID)
		})
	}
}

func TestService_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, cal := newTestService(t, nil)

	work, err := store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Work", Color: "#ff0000"})
	require.NoError(t, err)
	mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Training", StartDate: day(3, 2), EndDate: day(3, 6), EventTypeID: work.ID})
	mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Dentist", StartDate: day(3, 4), EndDate: day(3, 4)})
	before := shapes(t, store, cal.ID)

	snap, err := svc.CreateSnapshot(ctx, cal.ID, "Before the trip")
	require.NoError(t, err)
	assert.Equal(t, "Before the trip", snap.Name())
	require.NotNil(t, snap.Prompt)
	assert.Equal(t, "Snapshot: Before the trip", snap.Prompt.Content)

	// Change everything after the snapshot.
	require.NoError(t, store.DeleteAllEvents(ctx, cal.ID))
	_, err = store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Travel"})
	require.NoError(t, err)
	renamed := work
	renamed.Name = "Job"
	_, err = store.UpsertEventType(ctx, renamed)
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, cal.ID, calendar.Event{Title: "Trip", StartDate: day(4, 4), EndDate: day(4, 8)})
	require.NoError(t, err)

	out, err := svc.RestoreSnapshot(ctx, cal.ID, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "Before the trip", out.SnapshotName)
	assert.Equal(t, before, shapes(t, store, cal.ID))
	require.Len(t, out.EventTypes, 1)
	assert.Equal(t, work.ID, out.EventTypes[0].ID)
	assert.Equal(t, "Work", out.EventTypes[0].Name)
	assert.Len(t, out.Events, 2)

	n, err := svc.history.Len(ctx, cal.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	snaps, err := svc.ListSnapshots(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, snap.ID, snaps[0].ID)
}

func TestService_SnapshotDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, cal := newTestService(t, nil)

	snap, err := svc.CreateSnapshot(ctx, cal.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Snapshot 01/03/2026", snap.Name())
	assert.Equal(t, "Snapshot: untitled", snap.Prompt.Content)

	prompts, err := svc.ListPrompts(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.True(t, prompts[0].IsSnapshot())

	_, err = svc.RestoreSnapshot(ctx, cal.ID, "missing")
	assert.ErrorIs(t, err, calendar.ErrNotFound)
	_, err = svc.CreateSnapshot(ctx, "missing", "x")
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}
