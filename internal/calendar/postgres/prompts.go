package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/teemow/calprompt/internal/calendar"
)

const promptColumns = `id, calendar_id, content, interpretation, snapshot_name, created_at`

// CreatePrompt implements calendar.PromptStore.
func (s *Store) CreatePrompt(ctx context.Context, p calendar.Prompt) (calendar.Prompt, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var row promptRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		INSERT INTO prompts (id, calendar_id, content, interpretation, snapshot_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+promptColumns,
		p.ID, p.CalendarID, p.Content, nullString(p.Interpretation), nullString(p.SnapshotName))
	if err != nil {
		return calendar.Prompt{}, mapErr(err, "prompt")
	}
	return row.toPrompt(), nil
}

// ListPrompts implements calendar.PromptStore, newest first.
func (s *Store) ListPrompts(ctx context.Context, calendarID string, limit int) ([]calendar.Prompt, error) {
	var rows []promptRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT `+promptColumns+` FROM prompts
		WHERE calendar_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, calendarID, limitParam(limit))
	if err != nil {
		return nil, mapErr(err, "list prompts")
	}
	out := make([]calendar.Prompt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPrompt())
	}
	return out, nil
}

// DeletePrompt implements calendar.PromptStore. Linked events are unlinked
// and an attached snapshot is removed by the foreign keys.
func (s *Store) DeletePrompt(ctx context.Context, calendarID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM prompts WHERE calendar_id = $1 AND id = $2`, calendarID, id)
	if err != nil {
		return mapErr(err, "prompt "+id)
	}
	return mustAffect(res, "prompt "+id)
}

// LinkEvents implements calendar.PromptStore.
func (s *Store) LinkEvents(ctx context.Context, calendarID, promptID string, eventIDs []string) error {
	var n int
	err := sqlx.GetContext(ctx, s.db, &n,
		`SELECT count(*) FROM prompts WHERE calendar_id = $1 AND id = $2`, calendarID, promptID)
	if err != nil {
		return mapErr(err, "prompt "+promptID)
	}
	if n == 0 {
		return fmt.Errorf("prompt %s: %w", promptID, calendar.ErrNotFound)
	}
	if len(eventIDs) == 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE events SET prompt_id = $2
		WHERE calendar_id = $1 AND id = ANY($3)`,
		calendarID, promptID, pq.Array(eventIDs))
	return mapErr(err, "link events")
}

// LatestPromptWithEvents implements calendar.PromptStore.
func (s *Store) LatestPromptWithEvents(ctx context.Context, calendarID string) (calendar.Prompt, []calendar.Event, error) {
	var row promptRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		SELECT `+promptColumns+` FROM prompts p
		WHERE p.calendar_id = $1
		  AND EXISTS (SELECT 1 FROM events e WHERE e.prompt_id = p.id)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT 1`, calendarID)
	if err != nil {
		return calendar.Prompt{}, nil, mapErr(err, "prompt with events")
	}

	var rows []eventRow
	err = sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+eventColumns+` `+eventFrom+` WHERE e.prompt_id = $1 `+eventOrder, row.ID)
	if err != nil {
		return calendar.Prompt{}, nil, mapErr(err, "prompt events")
	}
	return row.toPrompt(), eventsFromRows(rows), nil
}
