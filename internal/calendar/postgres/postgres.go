// Package postgres implements calendar.Store on PostgreSQL with sqlx.
//
// Dates are stored in DATE columns and always read back as UTC midnight.
// Snapshot states live in a JSONB column next to the prompt that created
// them.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/logging"
)

// Options configure Open.
type Options struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectAttempts is how many times Open dials before giving up.
	ConnectAttempts int
	RetryInterval   time.Duration

	Logger logging.Logger
}

func (o *Options) defaults() {
	if o.MaxOpenConns == 0 {
		o.MaxOpenConns = 25
	}
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = 5
	}
	if o.ConnMaxLifetime == 0 {
		o.ConnMaxLifetime = 5 * time.Minute
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 10
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 2 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

// Open connects to the database, retrying while it comes up.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	opts.defaults()

	var err error
	for attempt := 1; attempt <= opts.ConnectAttempts; attempt++ {
		var db *sqlx.DB
		db, err = sqlx.ConnectContext(ctx, "postgres", opts.URL)
		if err == nil {
			db.SetMaxOpenConns(opts.MaxOpenConns)
			db.SetMaxIdleConns(opts.MaxIdleConns)
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
			opts.Logger.Info("connected to database")
			return db, nil
		}

		opts.Logger.Warn("failed to connect to database",
			"attempt", attempt,
			"retry_in", opts.RetryInterval.String(),
			logging.Err(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryInterval):
		}
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", opts.ConnectAttempts, err)
}

// Store is a calendar.Store backed by PostgreSQL.
type Store struct {
	db sqlx.ExtContext
	// root is nil for stores bound to a transaction.
	root *sqlx.DB
}

var (
	_ calendar.Store      = (*Store)(nil)
	_ calendar.Transactor = (*Store)(nil)
)

// New wraps an open database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, root: db}
}

// Ping implements calendar.Store.
func (s *Store) Ping(ctx context.Context) error {
	if s.root == nil {
		return nil
	}
	return s.root.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.root == nil {
		return nil
	}
	return s.root.Close()
}

// InTx implements calendar.Transactor.
func (s *Store) InTx(ctx context.Context, fn func(calendar.Store) error) error {
	return s.withTx(ctx, func(tx *Store) error { return fn(tx) })
}

// withTx runs fn in a transaction. Nested calls reuse the open one.
func (s *Store) withTx(ctx context.Context, fn func(*Store) error) (err error) {
	if s.root == nil {
		return fn(s)
	}
	tx, err := s.root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Store{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Postgres error codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// mapErr turns driver errors into calendar sentinel errors. what names the
// entity for the message.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, calendar.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", what, calendar.ErrDuplicateName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s references a missing row: %w", what, calendar.ErrNotFound)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w", what, calendar.ErrInvalidEvent)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// mustAffect returns ErrNotFound when a write matched no rows.
func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, calendar.ErrNotFound)
	}
	return nil
}
