package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/holidays"
)

func TestSplit(t *testing.T) {
	ev := calendar.Event{Title: "Training", StartDate: day(3, 2), EndDate: day(3, 11)}

	tests := []struct {
		name    string
		clicked time.Time
		before  *DateRange
		after   *DateRange
	}{
		{
			name:    "middle",
			clicked: day(3, 5),
			before:  &DateRange{Start: day(3, 2), End: day(3, 4)},
			after:   &DateRange{Start: day(3, 6), End: day(3, 11)},
		},
		{
			name:    "first day",
			clicked: day(3, 2),
			after:   &DateRange{Start: day(3, 3), End: day(3, 11)},
		},
		{
			name:    "last day",
			clicked: day(3, 11),
			before:  &DateRange{Start: day(3, 2), End: day(3, 10)},
		},
		{
			name:    "time of day ignored",
			clicked: day(3, 5).Add(15 * time.Hour),
			before:  &DateRange{Start: day(3, 2), End: day(3, 4)},
			after:   &DateRange{Start: day(3, 6), End: day(3, 11)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after, err := Split(ev, tt.clicked)
			require.NoError(t, err)
			assert.Equal(t, tt.before, before)
			assert.Equal(t, tt.after, after)
		})
	}

	one := calendar.Event{Title: "Dentist", StartDate: day(3, 4), EndDate: day(3, 4)}
	before, after, err := Split(one, day(3, 4))
	require.NoError(t, err)
	assert.Nil(t, before)
	assert.Nil(t, after)

	_, _, err = Split(ev, day(3, 12))
	assert.ErrorIs(t, err, ErrInvalidSplit)
}

func TestSplitRange_NoGapsNoOverlap(t *testing.T) {
	ev := calendar.Event{StartDate: day(3, 2), EndDate: day(3, 11)}
	cut := DateRange{Start: day(3, 7), End: day(3, 8)}

	before, after, err := SplitRange(ev, cut)
	require.NoError(t, err)
	require.NotNil(t, before)
	require.NotNil(t, after)
	assert.Equal(t, ev.EndDate.Sub(ev.StartDate), after.End.Sub(before.Start))
	assert.Equal(t, 10, before.Days()+cut.Days()+after.Days())
}

func TestDaysOff(t *testing.T) {
	within := DateRange{Start: day(3, 2), End: day(5, 29)}
	hols := holidays.Public(2026)

	assert.Equal(t, DateRange{Start: day(3, 4), End: day(3, 4)}, DaysOff(day(3, 4), within, hols))
	assert.Equal(t, DateRange{Start: day(3, 7), End: day(3, 8)}, DaysOff(day(3, 7), within, hols))
	assert.Equal(t, DateRange{Start: day(3, 7), End: day(3, 8)}, DaysOff(day(3, 8), within, hols))
	// Whit Monday joins the weekend before it.
	assert.Equal(t, DateRange{Start: day(5, 23), End: day(5, 25)}, DaysOff(day(5, 25), within, hols))

	clipped := DateRange{Start: day(3, 8), End: day(3, 20)}
	assert.Equal(t, DateRange{Start: day(3, 8), End: day(3, 8)}, DaysOff(day(3, 8), clipped, hols))
}

func TestService_SplitEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("exclude a weekend day", func(t *testing.T) {
		svc, store, cal := newTestService(t, nil)
		orig := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Training", Notes: "bring laptop", StartDate: day(3, 2), EndDate: day(3, 11)})

		out, err := svc.SplitEvent(ctx, cal.ID, orig.ID, SplitRequest{Date: day(3, 7), Mode: SplitExclude})
		require.NoError(t, err)
		assert.Equal(t, orig.ID, out.DeletedID)
		require.Len(t, out.Created, 2)
		assert.Equal(t, day(3, 2), out.Created[0].StartDate)
		assert.Equal(t, day(3, 6), out.Created[0].EndDate)
		assert.Equal(t, day(3, 9), out.Created[1].StartDate)
		assert.Equal(t, day(3, 11), out.Created[1].EndDate)
		for _, e := range out.Created {
			assert.False(t, e.Covers(day(3, 7)))
			assert.Equal(t, "Training", e.Title)
			assert.Equal(t, "bring laptop", e.Notes)
		}

		_, err = store.GetEvent(ctx, cal.ID, orig.ID)
		assert.ErrorIs(t, err, calendar.ErrNotFound)
	})

	t.Run("exclude a working day", func(t *testing.T) {
		svc, store, cal := newTestService(t, nil)
		orig := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Training", StartDate: day(3, 2), EndDate: day(3, 11)})

		out, err := svc.SplitEvent(ctx, cal.ID, orig.ID, SplitRequest{Date: day(3, 4), Mode: SplitExclude})
		require.NoError(t, err)
		require.Len(t, out.Created, 2)
		assert.Equal(t, day(3, 3), out.Created[0].EndDate)
		assert.Equal(t, day(3, 5), out.Created[1].StartDate)
	})

	t.Run("replace the clicked day", func(t *testing.T) {
		svc, store, cal := newTestService(t, nil)
		work, err := store.CreateEventType(ctx, calendar.EventType{CalendarID: cal.ID, Name: "Work"})
		require.NoError(t, err)
		orig := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Training", StartDate: day(3, 2), EndDate: day(3, 11), EventTypeID: work.ID})

		out, err := svc.SplitEvent(ctx, cal.ID, orig.ID, SplitRequest{Date: day(3, 7), Mode: SplitReplace, Title: " Exam "})
		require.NoError(t, err)
		require.Len(t, out.Created, 3)
		assert.Equal(t, "Exam", out.Created[1].Title)
		assert.Equal(t, day(3, 7), out.Created[1].StartDate)
		assert.Equal(t, day(3, 7), out.Created[1].EndDate)
		assert.Equal(t, day(3, 8), out.Created[2].StartDate)
		for _, e := range out.Created {
			assert.Equal(t, work.ID, e.EventTypeID)
		}

		events, err := store.ListEvents(ctx, cal.ID)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("invalid requests", func(t *testing.T) {
		svc, store, cal := newTestService(t, nil)
		orig := mustEvent(t, store, calendar.Event{CalendarID: cal.ID, Title: "Training", StartDate: day(3, 2), EndDate: day(3, 11)})

		_, err := svc.SplitEvent(ctx, cal.ID, orig.ID, SplitRequest{Date: day(3, 20), Mode: SplitExclude})
		assert.ErrorIs(t, err, ErrInvalidSplit)
		_, err = svc.SplitEvent(ctx, cal.ID, orig.ID, SplitRequest{Date: day(3, 4), Mode: SplitReplace})
		assert.ErrorIs(t, err, ErrInvalidSplit)
		_, err = svc.SplitEvent(ctx, cal.ID, orig.ID, SplitRequest{Date: day(3, 4), Mode: "shrink"})
		assert.ErrorIs(t, err, ErrInvalidSplit)
		_, err = svc.SplitEvent(ctx, cal.ID, "missing", SplitRequest{Date: day(3, 4), Mode: SplitExclude})
		assert.ErrorIs(t, err, calendar.ErrNotFound)

		n, err := svc.history.Len(ctx, cal.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
