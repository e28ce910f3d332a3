// Package history keeps a bounded, per-calendar stack of event-list
// snapshots taken before every mutating operation. Popping an entry hands the
// pre-mutation state back to the caller for reconciliation.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
)

// Capacity is the maximum number of entries kept per calendar. Older
// entries are dropped when a push exceeds it.
const Capacity = 20

// Entry is the event list of a calendar as it was before an operation.
type Entry struct {
	Label  string           `json:"label"`
	Events []calendar.Event `json:"events"`
	At     time.Time        `json:"at"`
}

// ErrCorruptEntry is returned by Pop when the newest entry was removed but
// could not be read back.
var ErrCorruptEntry = errors.New("undo entry is unreadable")

// Store is a bounded LIFO of entries keyed by calendar id.
type Store interface {
	Push(ctx context.Context, calendarID string, e Entry) error
	// Pop removes and returns the newest entry. The boolean is false when
	// the stack is empty. An entry that was removed but cannot be read is
	// reported as true with an error wrapping ErrCorruptEntry.
	Pop(ctx context.Context, calendarID string) (Entry, bool, error)
	Len(ctx context.Context, calendarID string) (int, error)
	Clear(ctx context.Context, calendarID string) error
}
