package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/teemow/calprompt/internal/anthropic"
	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/calendar/postgres"
	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/history"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/interpret"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/planner"
	"github.com/teemow/calprompt/internal/server"
	"github.com/teemow/calprompt/internal/tools/date_tools"
)

var errDatabaseRequired = errors.New("DATABASE_URL (or --database-url) is required for this command")

// stack holds the dependencies shared by serve and the calendar commands.
type stack struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   calendar.Store
	history history.Store
	school  *holidays.SchoolTable
	service *planner.Service
	closers []func() error
}

// buildStack opens the store and the undo history and wires the planner.
// Without a database the calendars live in memory, unless requireDB is set.
func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger, sc *server.ServerContext, requireDB bool) (*stack, error) {
	st := &stack{cfg: cfg, logger: logger}
	adapter := logging.NewSlogAdapter(logger)

	if err := st.openStore(ctx, adapter, requireDB); err != nil {
		_ = st.Close()
		return nil, err
	}
	sc.AddHealthCheck("store", st.store)
	st.openHistory(sc)

	school, err := cfg.SchoolTable()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load school holidays: %w", err)
	}
	st.school = school

	st.service, err = planner.NewService(planner.Config{
		Store:       st.store,
		History:     st.history,
		Interpreter: newInterpreter(cfg, logger, sc),
		School:      school,
		Zone:        cfg.DefaultSchoolZone,
		Logger:      adapter,
		Metrics:     sc.Metrics(),
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func (st *stack) openStore(ctx context.Context, logger logging.Logger, requireDB bool) error {
	if st.cfg.DatabaseURL == "" {
		if requireDB {
			return errDatabaseRequired
		}
		logger.Warn("DATABASE_URL not set, calendars are kept in memory")
		st.store = calendar.NewMemoryStore()
		return nil
	}

	db, err := postgres.Open(ctx, postgres.Options{URL: st.cfg.DatabaseURL, Logger: logger})
	if err != nil {
		return err
	}
	st.closers = append(st.closers, db.Close)
	if err := postgres.MigrateUp(db.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	st.store = postgres.New(db)
	return nil
}

func (st *stack) openHistory(sc *server.ServerContext) {
	if st.cfg.RedisAddr == "" {
		st.history = history.NewMemoryStore()
		return
	}
	client := history.NewRedisClient(history.RedisOptions{
		Addr:     st.cfg.RedisAddr,
		Password: st.cfg.RedisPassword,
		DB:       st.cfg.RedisDB,
	})
	st.closers = append(st.closers, client.Close)
	sc.AddHealthCheck("history", redisPinger{client})
	st.history = history.NewRedisStore(client)
}

// Close releases the connections in reverse order of opening.
func (st *stack) Close() error {
	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		errs = append(errs, st.closers[i]())
	}
	st.closers = nil
	return errors.Join(errs...)
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// newInterpreter returns nil without an API key; the planner then answers
// every instruction with the unavailable fallback.
func newInterpreter(cfg *config.Config, logger *slog.Logger, sc *server.ServerContext) planner.Interpreter {
	if cfg.AnthropicAPIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not set, instructions will not be interpreted")
		return nil
	}
	backend := anthropic.New(anthropic.Config{
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.ReasoningMaxTokens,
	})
	tools := date_tools.NewCatalogue(
		date_tools.WithMetrics(sc.Metrics()),
		date_tools.WithAuditLogger(sc.AuditLogger()),
	)
	logger.Info("reasoning backend configured", "model", backend.Model())
	return interpret.New(backend, tools,
		interpret.WithRoundTripTimeout(cfg.ReasoningTimeout),
		interpret.WithLogger(logger),
		interpret.WithMetrics(sc.Metrics()),
	)
}
