package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teemow/calprompt/internal/calendar"
)

// CreateSnapshot implements calendar.SnapshotStore. The prompt and the
// state are written in one transaction.
func (s *Store) CreateSnapshot(ctx context.Context, p calendar.Prompt, snap calendar.Snapshot) (calendar.Snapshot, error) {
	var out calendar.Snapshot
	err := s.withTx(ctx, func(tx *Store) error {
		prompt, err := tx.CreatePrompt(ctx, p)
		if err != nil {
			return err
		}
		id := uuid.NewString()
		// The state goes over the wire as text: []byte parameters are sent as bytea.
		_, err = tx.db.ExecContext(ctx, `
			INSERT INTO calendar_states (id, calendar_id, prompt_id, state_json, created_at)
			VALUES ($1, $2, $3, $4::jsonb, $5)`,
			id, prompt.CalendarID, prompt.ID, string(snap.State), prompt.CreatedAt)
		if err != nil {
			return mapErr(err, "snapshot")
		}
		out, err = tx.GetSnapshot(ctx, prompt.CalendarID, id)
		return err
	})
	if err != nil {
		return calendar.Snapshot{}, err
	}
	return out, nil
}

// GetSnapshot implements calendar.SnapshotStore.
func (s *Store) GetSnapshot(ctx context.Context, calendarID, id string) (calendar.Snapshot, error) {
	var row snapshotRow
	err := sqlx.GetContext(ctx, s.db, &row,
		`SELECT `+snapshotColumns+` `+snapshotFrom+` WHERE s.calendar_id = $1 AND s.id = $2`, calendarID, id)
	if err != nil {
		return calendar.Snapshot{}, mapErr(err, "snapshot "+id)
	}
	return row.toSnapshot(), nil
}

// ListSnapshots implements calendar.SnapshotStore, newest first.
func (s *Store) ListSnapshots(ctx context.Context, calendarID string, limit int) ([]calendar.Snapshot, error) {
	var rows []snapshotRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT `+snapshotColumns+` `+snapshotFrom+`
		WHERE s.calendar_id = $1
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2`, calendarID, limitParam(limit))
	if err != nil {
		return nil, mapErr(err, "list snapshots")
	}
	out := make([]calendar.Snapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSnapshot())
	}
	return out, nil
}
