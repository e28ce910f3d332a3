package date_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/tools/common"
)

// Tool names, as declared to the reasoning backend and MCP clients.
const (
	ToolNthWeekdayOfMonth  = "get_nth_weekday_of_month"
	ToolLastWeekdayOfMonth = "get_last_weekday_of_month"
	ToolDayOfWeek          = "get_day_of_week"
	ToolRelativeDate       = "get_relative_date"
	ToolNextWeekday        = "get_next_weekday"
	ToolMondayOfWeek       = "get_monday_of_week"
)

const weekdayHelp = "Day of the week, in French (lundi, mardi, mercredi, jeudi, vendredi, samedi, dimanche) or English"

type dateTool struct {
	def mcp.Tool
	run func(args map[string]any) (dates.Result, error)
}

var catalogue = []dateTool{
	{
		def: mcp.NewTool(ToolNthWeekdayOfMonth,
			mcp.WithDescription("Find the nth occurrence of a weekday in a month, e.g. the 2nd Friday of January 2026."),
			mcp.WithNumber("year", mcp.Required(), mcp.Description("Year, e.g. 2026")),
			mcp.WithNumber("month", mcp.Required(), mcp.Description("Month number (1-12)")),
			mcp.WithString("weekday", mcp.Required(), mcp.Description(weekdayHelp)),
			mcp.WithNumber("nth", mcp.Required(), mcp.Description("Occurrence, 1 for the first, 2 for the second, and so on")),
		),
		run: func(args map[string]any) (dates.Result, error) {
			year, err := common.IntArg(args, "year")
			if err != nil {
				return dates.Result{}, err
			}
			month, err := common.IntArg(args, "month")
			if err != nil {
				return dates.Result{}, err
			}
			weekday, err := common.StringArg(args, "weekday")
			if err != nil {
				return dates.Result{}, err
			}
			nth, err := common.IntArg(args, "nth")
			if err != nil {
				return dates.Result{}, err
			}
			return dates.NthWeekdayOfMonth(year, month, weekday, nth), nil
		},
	},
	{
		def: mcp.NewTool(ToolLastWeekdayOfMonth,
			mcp.WithDescription("Find the last occurrence of a weekday in a month, e.g. the last Friday of March 2026."),
			mcp.WithNumber("year", mcp.Required(), mcp.Description("Year")),
			mcp.WithNumber("month", mcp.Required(), mcp.Description("Month number (1-12)")),
			mcp.WithString("weekday", mcp.Required(), mcp.Description(weekdayHelp)),
		),
		run: func(args map[string]any) (dates.Result, error) {
			year, err := common.IntArg(args, "year")
			if err != nil {
				return dates.Result{}, err
			}
			month, err := common.IntArg(args, "month")
			if err != nil {
				return dates.Result{}, err
			}
			weekday, err := common.StringArg(args, "weekday")
			if err != nil {
				return dates.Result{}, err
			}
			return dates.LastWeekdayOfMonth(year, month, weekday), nil
		},
	},
	{
		def: mcp.NewTool(ToolDayOfWeek,
			mcp.WithDescription("Return the day of the week of a date."),
			mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
		),
		run: func(args map[string]any) (dates.Result, error) {
			date, err := common.StringArg(args, "date")
			if err != nil {
				return dates.Result{}, err
			}
			return dates.DayOfWeek(date), nil
		},
	},
	{
		def: mcp.NewTool(ToolRelativeDate,
			mcp.WithDescription("Offset a date by days, weeks or months, e.g. 3 weeks before 2026-03-15."),
			mcp.WithString("base_date", mcp.Required(), mcp.Description("Reference date as YYYY-MM-DD")),
			mcp.WithNumber("offset", mcp.Required(), mcp.Description("Offset, positive for after and negative for before")),
			mcp.WithString("unit", mcp.Required(),
				mcp.Description("Unit of the offset"),
				mcp.Enum(string(dates.UnitDays), string(dates.UnitWeeks), string(dates.UnitMonths)),
			),
		),
		run: func(args map[string]any) (dates.Result, error) {
			base, err := common.StringArg(args, "base_date")
			if err != nil {
				return dates.Result{}, err
			}
			offset, err := common.IntArg(args, "offset")
			if err != nil {
				return dates.Result{}, err
			}
			unit, err := common.StringArg(args, "unit")
			if err != nil {
				return dates.Result{}, err
			}
			return dates.RelativeDate(base, offset, dates.Unit(unit)), nil
		},
	},
	{
		def: mcp.NewTool(ToolNextWeekday,
			mcp.WithDescription("Find the next occurrence of a weekday starting from a date."),
			mcp.WithString("from_date", mcp.Required(), mcp.Description("Start date as YYYY-MM-DD")),
			mcp.WithString("weekday", mcp.Required(), mcp.Description(weekdayHelp)),
			mcp.WithBoolean("include_today", mcp.Description("Count the start date itself when it matches (default false)")),
		),
		run: func(args map[string]any) (dates.Result, error) {
			from, err := common.StringArg(args, "from_date")
			if err != nil {
				return dates.Result{}, err
			}
			weekday, err := common.StringArg(args, "weekday")
			if err != nil {
				return dates.Result{}, err
			}
			includeToday, err := common.BoolArg(args, "include_today", false)
			if err != nil {
				return dates.Result{}, err
			}
			return dates.NextWeekday(from, weekday, includeToday), nil
		},
	},
	{
		def: mcp.NewTool(ToolMondayOfWeek,
			mcp.WithDescription("Find the Monday of the week containing a date. A Sunday belongs to the week that started six days earlier."),
			mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
		),
		run: func(args map[string]any) (dates.Result, error) {
			date, err := common.StringArg(args, "date")
			if err != nil {
				return dates.Result{}, err
			}
			return dates.MondayOfWeek(date), nil
		},
	},
}

func lookup(name string) (dateTool, bool) {
	for _, t := range catalogue {
		if t.def.Name == name {
			return t, true
		}
	}
	return dateTool{}, false
}

// Run executes a date tool without instrumentation. Unknown tools and
// malformed arguments become failure results.
func Run(name string, args map[string]any) dates.Result {
	t, ok := lookup(name)
	if !ok {
		return dates.Failure("unknown tool: %s", name)
	}
	res, err := t.run(args)
	if err != nil {
		return dates.Failure("%s", err)
	}
	return res
}

// Names lists the tool names in catalogue order.
func Names() []string {
	names := make([]string, len(catalogue))
	for i, t := range catalogue {
		names[i] = t.def.Name
	}
	return names
}

// Catalogue is the date toolkit as seen by the interpretation loop.
type Catalogue struct {
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// Option configures a Catalogue.
type Option func(*Catalogue)

// WithMetrics records a metric per executed tool.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Catalogue) { c.metrics = m }
}

// WithAuditLogger writes an audit line per executed tool.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(c *Catalogue) { c.audit = al }
}

// NewCatalogue creates a Catalogue.
func NewCatalogue(opts ...Option) *Catalogue {
	c := &Catalogue{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tools returns the declared tool definitions.
func (c *Catalogue) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, len(catalogue))
	for i, t := range catalogue {
		tools[i] = t.def
	}
	return tools
}

// Execute runs the named tool inside a span and records it.
func (c *Catalogue) Execute(ctx context.Context, name string, args map[string]any) dates.Result {
	calendarID := CalendarIDFromContext(ctx)
	attrs := instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()
	ctx, span := instrumentation.StartToolSpan(ctx, name, attrs...)
	defer span.End()

	start := time.Now()
	invocation := instrumentation.NewToolInvocation(name).
		WithSource(instrumentation.SourceInterpreter).
		WithCalendar(calendarID).
		WithArguments(args).
		WithSpanContext(ctx)

	res := Run(name, args)

	if res.Success {
		invocation.CompleteSuccess()
		instrumentation.SetSpanSuccess(span)
	} else {
		invocation.CompleteWithFailure(res.Error)
		instrumentation.AddSpanEvent(span, "tool_failure")
	}

	c.metrics.RecordToolInvocation(ctx, boundedToolName(name), invocation.Status(), time.Since(start))
	c.audit.LogToolInvocation(invocation)
	return res
}

// boundedToolName keeps unknown names requested by the backend out of
// metric labels.
func boundedToolName(name string) string {
	return instrumentation.BoundedLabel(name, Names()...)
}

type calendarKey struct{}

// WithCalendarID tags ctx with the calendar an interpretation runs for, so
// tool executions can be attributed to it.
func WithCalendarID(ctx context.Context, calendarID string) context.Context {
	return context.WithValue(ctx, calendarKey{}, calendarID)
}

// CalendarIDFromContext returns the calendar set by WithCalendarID.
func CalendarIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(calendarKey{}).(string)
	return id
}
