package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
)

const (
	// MaxIterations caps the backend round trips of one interpretation.
	MaxIterations = 10

	// DefaultRoundTripTimeout bounds a single backend call.
	DefaultRoundTripTimeout = 90 * time.Second
)

// StopReason is why the backend ended a turn.
type StopReason string

const (
	StopFinal     StopReason = "final"
	StopTruncated StopReason = "truncated"
	StopToolUse   StopReason = "tool_use"
	StopOther     StopReason = "other"
)

// Role of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is a tool invocation requested by the backend.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult answers the ToolCall with the same id.
type ToolResult struct {
	CallID  string `json:"callId"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// Message is one entry of the transcript. Assistant messages may carry
// tool calls; the user message that follows carries one result per call.
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// Request is one round trip to the backend.
type Request struct {
	System   string
	Tools    []mcp.Tool
	Messages []Message
}

// Turn is the backend's answer to a Request.
type Turn struct {
	Stop      StopReason
	Text      string
	ToolCalls []ToolCall

	// Raw is the backend's own stop reason, kept for logs.
	Raw string
}

// Backend is the reasoning service driven by the loop.
type Backend interface {
	Complete(ctx context.Context, req Request) (Turn, error)
}

// ToolExecutor declares and runs the date tools.
type ToolExecutor interface {
	Tools() []mcp.Tool
	Execute(ctx context.Context, name string, args map[string]any) dates.Result
}

// Outcome is the end state of an interpretation. Err is only set when the
// caller's context ended the loop; Result then applies nothing.
type Outcome struct {
	Result     Result
	Transcript []Message
	Iterations int
	Err        error
}

// Status returns the interpretation outcome metric label.
func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return instrumentation.OutcomeCancelled
	case len(o.Result.Actions) == 0 && len(o.Result.Warnings) > 0:
		return instrumentation.OutcomeWarning
	default:
		return instrumentation.OutcomeAnswered
	}
}

// Interpreter runs the bounded reasoning loop.
type Interpreter struct {
	backend       Backend
	tools         ToolExecutor
	maxIterations int
	timeout       time.Duration
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxIterations lowers the round-trip cap. Values outside
// 1..MaxIterations are ignored.
func WithMaxIterations(n int) Option {
	return func(i *Interpreter) {
		if n >= 1 && n <= MaxIterations {
			i.maxIterations = n
		}
	}
}

// WithRoundTripTimeout sets the budget of each backend call.
func WithRoundTripTimeout(d time.Duration) Option {
	return func(i *Interpreter) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMetrics records round trips and outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(i *Interpreter) { i.metrics = m }
}

// New creates an Interpreter.
func New(backend Backend, tools ToolExecutor, opts ...Option) *Interpreter {
	i := &Interpreter{
		backend:       backend,
		tools:         tools,
		maxIterations: MaxIterations,
		timeout:       DefaultRoundTripTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Interpret runs instruction against the backend under the system prompt.
// Backend faults never escape: they end the loop with a fallback Result
// carrying a warning. Actions are only ever returned from a parsed final
// answer.
func (in *Interpreter) Interpret(ctx context.Context, system, instruction string) Outcome {
	ctx, span := instrumentation.StartSpan(ctx, "interpret")
	defer span.End()

	out := in.run(ctx, system, instruction)

	logger := in.logger.With(logging.Iteration(out.Iterations), logging.Status(out.Status()))
	if out.Err != nil {
		instrumentation.SetSpanError(span, out.Err)
		logger.Info("Interpretation cancelled", logging.Err(out.Err))
	} else {
		instrumentation.SetSpanSuccess(span)
		logger.Info("Interpretation finished", "actions", len(out.Result.Actions))
	}
	in.metrics.RecordInterpretation(ctx, out.Status(), out.Iterations)
	return out
}

func (in *Interpreter) run(ctx context.Context, system, instruction string) Outcome {
	out := Outcome{
		Transcript: []Message{{Role: RoleUser, Text: instruction}},
	}
	var tools []mcp.Tool
	if in.tools != nil {
		tools = in.tools.Tools()
	}

	for out.Iterations < in.maxIterations {
		if err := ctx.Err(); err != nil {
			return cancelled(out, err)
		}
		out.Iterations++

		turn, err := in.roundTrip(ctx, out.Iterations, Request{
			System:   system,
			Tools:    tools,
			Messages: slices.Clone(out.Transcript),
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cancelled(out, ctxErr)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				in.logger.Warn("Reasoning round trip timed out", logging.Iteration(out.Iterations))
				out.Result = TimeoutResult()
			} else {
				in.logger.Error("Reasoning backend failed", logging.Iteration(out.Iterations), logging.Err(err))
				out.Result = UnavailableResult()
			}
			return out
		}

		switch turn.Stop {
		case StopTruncated:
			in.logger.Warn("Reasoning answer truncated", logging.Iteration(out.Iterations))
			out.Result = TruncatedResult()
			return out

		case StopFinal:
			out.Transcript = append(out.Transcript, Message{Role: RoleAssistant, Text: turn.Text})
			out.Result = in.finalResult(turn.Text)
			return out

		case StopToolUse:
			if len(turn.ToolCalls) == 0 {
				in.logger.Warn("Tool use turn without tool calls", logging.Iteration(out.Iterations))
				out.Result = FailureResult()
				return out
			}
			out.Transcript = append(out.Transcript,
				Message{Role: RoleAssistant, Text: turn.Text, ToolCalls: turn.ToolCalls},
				Message{Role: RoleUser, ToolResults: in.executeTools(ctx, turn.ToolCalls)},
			)

		default:
			in.logger.Warn("Unexpected stop reason",
				logging.Iteration(out.Iterations), logging.StopReason(turn.Raw))
			out.Result = FailureResult()
			return out
		}
	}

	in.logger.Warn("Interpretation hit the iteration cap", logging.Iteration(out.Iterations))
	out.Result = FailureResult()
	return out
}

func cancelled(out Outcome, err error) Outcome {
	out.Err = err
	out.Result = CancelledResult()
	return out
}

func (in *Interpreter) roundTrip(ctx context.Context, iteration int, req Request) (Turn, error) {
	rtCtx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	rtCtx, span := instrumentation.StartReasoningSpan(rtCtx, iteration)
	defer span.End()

	start := time.Now()
	turn, err := in.backend.Complete(rtCtx, req)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		in.metrics.RecordReasoningRoundTrip(ctx, instrumentation.StatusError, time.Since(start))
		return Turn{}, err
	}
	instrumentation.SetSpanSuccess(span)
	in.metrics.RecordReasoningRoundTrip(ctx, string(turn.Stop), time.Since(start))
	in.logger.Debug("Reasoning round trip",
		logging.Iteration(iteration), logging.StopReason(string(turn.Stop)), "tool_calls", len(turn.ToolCalls))
	return turn, nil
}

func (in *Interpreter) finalResult(text string) Result {
	if text == "" {
		return EmptyAnswerResult()
	}
	res, err := ParseResult(text)
	switch {
	case errors.Is(err, ErrIncomplete):
		in.logger.Warn("Final answer looks truncated", "tail", tail(text, 100))
		return IncompleteResult()
	case err != nil:
		in.logger.Warn("Final answer is not valid JSON", logging.Err(err))
		return UnparseableResult()
	}
	return res
}

// executeTools runs every call in order and answers each one by id.
func (in *Interpreter) executeTools(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		var res dates.Result
		if in.tools == nil {
			res = dates.Failure("unknown tool: %s", call.Name)
		} else {
			res = in.tools.Execute(ctx, call.Name, call.Arguments)
		}
		in.logger.Debug("Executed date tool", logging.Tool(call.Name), "success", res.Success)

		content, err := json.Marshal(res)
		if err != nil {
			content = []byte(`{"success":false,"error":"unencodable result"}`)
		}
		results = append(results, ToolResult{
			CallID:  call.ID,
			Content: string(content),
			IsError: !res.Success,
		})
	}
	return results
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
