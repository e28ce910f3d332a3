package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/history"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/interpret"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/tools/date_tools"
)

// ListLimit caps prompt and snapshot listings.
const ListLimit = 50

var (
	// ErrNothingToUndo is returned by Undo when neither tier has an entry.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrEmptyPrompt is returned for blank instructions.
	ErrEmptyPrompt = errors.New("prompt content is required")

	// ErrInvalidSplit is returned for a split outside the event or with a
	// bad mode.
	ErrInvalidSplit = errors.New("invalid split")

	// ErrInvalidSnapshot is returned when a snapshot blob cannot be read.
	ErrInvalidSnapshot = errors.New("invalid snapshot state")
)

// Interpreter runs an instruction under a system prompt.
type Interpreter interface {
	Interpret(ctx context.Context, system, instruction string) interpret.Outcome
}

// Config wires a Service.
type Config struct {
	Store       calendar.Store
	History     history.Store
	Interpreter Interpreter
	// School defaults to the embedded table.
	School *holidays.SchoolTable
	// Zone is used for calendars without a valid zone.
	Zone    holidays.Zone
	Logger  logging.Logger
	Metrics *instrumentation.Metrics
	Now     func() time.Time
}

// Service applies interpretations and direct edits to calendars and keeps
// their undo history.
type Service struct {
	store       calendar.Store
	history     history.Store
	interpreter Interpreter
	applier     *Applier
	school      *holidays.SchoolTable
	zone        holidays.Zone
	logger      logging.Logger
	metrics     *instrumentation.Metrics
	now         func() time.Time
}

// NewService creates a Service. Store is required; history defaults to a
// process-local stack.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("planner: a calendar store is required")
	}
	s := &Service{
		store:       cfg.Store,
		history:     cfg.History,
		interpreter: cfg.Interpreter,
		school:      cfg.School,
		zone:        cfg.Zone,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
	}
	if s.history == nil {
		s.history = history.NewMemoryStore()
	}
	if s.school == nil {
		s.school = holidays.DefaultSchoolTable()
	}
	if s.zone == "" {
		s.zone = holidays.DefaultZone
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.applier = NewApplier(cfg.Store, s.logger, cfg.Metrics)
	return s, nil
}

// Ping checks the calendar store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CreateCalendar creates a calendar. An empty zone takes the default.
func (s *Service) CreateCalendar(ctx context.Context, name, zone string) (calendar.Calendar, error) {
	z := s.zone
	if zone != "" {
		parsed, err := holidays.ParseZone(zone)
		if err != nil {
			return calendar.Calendar{}, err
		}
		z = parsed
	}
	return s.store.CreateCalendar(ctx, calendar.Calendar{Name: strings.TrimSpace(name), SchoolZone: string(z)})
}

// GetCalendar returns one calendar.
func (s *Service) GetCalendar(ctx context.Context, calendarID string) (calendar.Calendar, error) {
	return s.store.GetCalendar(ctx, calendarID)
}

func (s *Service) zoneOf(c calendar.Calendar) holidays.Zone {
	if z, err := holidays.ParseZone(c.SchoolZone); err == nil {
		return z
	}
	return s.zone
}

// Holidays lists the public holidays of year and the school holidays of the
// calendar's zone.
func (s *Service) Holidays(ctx context.Context, calendarID string, year int) (holidays.Listing, error) {
	c, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return holidays.Listing{}, err
	}
	return s.school.Listing(year, s.zoneOf(c)), nil
}

// PromptOutcome is the result of ProcessPrompt.
type PromptOutcome struct {
	Prompt     calendar.Prompt
	Result     interpret.Result
	Applied    Applied
	Iterations int
}

// ProcessPrompt interprets content against the calendar, applies the
// resulting actions and records the prompt. A cancelled interpretation
// applies nothing and returns the context error.
func (s *Service) ProcessPrompt(ctx context.Context, calendarID, content string) (PromptOutcome, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return PromptOutcome{}, ErrEmptyPrompt
	}

	c, events, types, err := s.load(ctx, calendarID)
	if err != nil {
		return PromptOutcome{}, err
	}

	g := interpret.BuildGrounding(interpret.GroundingInput{
		Today:  s.now(),
		Events: events,
		Types:  types,
		Zone:   s.zoneOf(c),
		School: s.school,
	})
	out, err := s.interpret(ctx, calendarID, g.SystemPrompt(), content)
	if err != nil {
		return PromptOutcome{Result: out.Result, Iterations: out.Iterations}, err
	}

	if len(out.Result.Actions) > 0 {
		s.record(ctx, calendarID, "prompt", events)
	}
	applied, err := s.applier.Apply(ctx, calendarID, out.Result, types)
	if err != nil {
		return PromptOutcome{}, err
	}

	prompt, err := s.store.CreatePrompt(ctx, calendar.Prompt{
		CalendarID:     calendarID,
		Content:        content,
		Interpretation: out.Result.Interpretation,
	})
	if err != nil {
		return PromptOutcome{}, fmt.Errorf("planner: failed to save prompt: %w", err)
	}
	if ids := applied.CreatedIDs(); len(ids) > 0 {
		if err := s.store.LinkEvents(ctx, calendarID, prompt.ID, ids); err != nil {
			return PromptOutcome{}, fmt.Errorf("planner: failed to link events to prompt: %w", err)
		}
	}

	s.logger.Info("Processed prompt",
		logging.Calendar(calendarID),
		logging.Prompt(prompt.ID),
		logging.Instruction(logging.Truncate(content, 80)),
		logging.Iteration(out.Iterations))

	return PromptOutcome{
		Prompt:     prompt,
		Result:     out.Result,
		Applied:    applied,
		Iterations: out.Iterations,
	}, nil
}

// SynthesisOutcome is the result of Synthesize.
type SynthesisOutcome struct {
	Interpretation string
	Events         []calendar.Event
	Applied        Applied
}

// Synthesize runs one grounded interpretation of an edited calendar summary
// against current, the events the caller is looking at. A nil current uses
// the stored events. The returned events are the calendar after applying.
func (s *Service) Synthesize(ctx context.Context, calendarID string, current []calendar.Event, text string) (SynthesisOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SynthesisOutcome{}, ErrEmptyPrompt
	}

	c, events, types, err := s.load(ctx, calendarID)
	if err != nil {
		return SynthesisOutcome{}, err
	}
	if current == nil {
		current = events
	} else {
		current = resolveTypes(current, types)
	}

	g := interpret.BuildGrounding(interpret.GroundingInput{
		Today:  s.now(),
		Events: current,
		Types:  types,
		Zone:   s.zoneOf(c),
		School: s.school,
	})
	out, err := s.interpret(ctx, calendarID, g.SynthesisPrompt(), interpret.SynthesisInstruction(text))
	if err != nil {
		return SynthesisOutcome{Interpretation: out.Result.Interpretation}, err
	}

	if len(out.Result.Actions) > 0 {
		s.record(ctx, calendarID, "synthesis", events)
	}
	applied, err := s.applier.Apply(ctx, calendarID, out.Result, types)
	if err != nil {
		return SynthesisOutcome{}, err
	}
	after, err := s.store.ListEvents(ctx, calendarID)
	if err != nil {
		return SynthesisOutcome{}, err
	}
	return SynthesisOutcome{
		Interpretation: out.Result.Interpretation,
		Events:         after,
		Applied:        applied,
	}, nil
}

// resolveTypes attaches the calendar's type to each event that names one by
// ID only. Unknown IDs are left unresolved.
func resolveTypes(events []calendar.Event, types []calendar.EventType) []calendar.Event {
	byID := make(map[string]calendar.EventType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	out := make([]calendar.Event, len(events))
	for i, e := range events {
		if e.EventType == nil && e.EventTypeID != "" {
			if t, ok := byID[e.EventTypeID]; ok {
				e.EventType = &t
			}
		}
		out[i] = e
	}
	return out
}

func (s *Service) interpret(ctx context.Context, calendarID, system, instruction string) (interpret.Outcome, error) {
	if s.interpreter == nil {
		return interpret.Outcome{Result: interpret.UnavailableResult()}, nil
	}
	out := s.interpreter.Interpret(date_tools.WithCalendarID(ctx, calendarID), system, instruction)
	if out.Err != nil {
		return out, fmt.Errorf("planner: interpretation cancelled: %w", out.Err)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, calendarID string) (calendar.Calendar, []calendar.Event, []calendar.EventType, error) {
	c, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return calendar.Calendar{}, nil, nil, err
	}
	events, err := s.store.ListEvents(ctx, calendarID)
	if err != nil {
		return calendar.Calendar{}, nil, nil, err
	}
	types, err := s.store.ListEventTypes(ctx, calendarID)
	if err != nil {
		return calendar.Calendar{}, nil, nil, err
	}
	return c, events, types, nil
}

// record pushes the pre-mutation event list. A failing history store only
// costs the undo step, so the mutation goes ahead.
func (s *Service) record(ctx context.Context, calendarID, label string, before []calendar.Event) {
	err := s.history.Push(ctx, calendarID, history.Entry{Label: label, Events: before, At: s.now()})
	if err != nil {
		s.logger.Warn("Failed to record undo entry", logging.Calendar(calendarID), logging.Operation(label), logging.Err(err))
	}
}

// snapshotBefore lists the events and records them under label.
func (s *Service) snapshotBefore(ctx context.Context, calendarID, label string) error {
	events, err := s.store.ListEvents(ctx, calendarID)
	if err != nil {
		return err
	}
	s.record(ctx, calendarID, label, events)
	return nil
}

// ListPrompts returns the newest prompts.
func (s *Service) ListPrompts(ctx context.Context, calendarID string) ([]calendar.Prompt, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return nil, err
	}
	return s.store.ListPrompts(ctx, calendarID, ListLimit)
}
