package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teemow/calprompt/internal/dates"
)

// Action kinds as they appear on the wire.
const (
	KindCreate  = "create"
	KindUpdate  = "update"
	KindDelete  = "delete"
	KindInvalid = "invalid"
)

var (
	// ErrIncomplete is returned by ParseResult when the payload was cut off
	// before its closing brace.
	ErrIncomplete = errors.New("interpret: result payload is incomplete")

	// ErrUnparseable is returned by ParseResult when the payload is not a
	// result object.
	ErrUnparseable = errors.New("interpret: result payload is not valid JSON")
)

// Result is the structured answer of an interpretation.
type Result struct {
	Interpretation string         `json:"interpretation"`
	Actions        []Action       `json:"-"`
	NewEventTypes  []NewEventType `json:"newEventTypes"`
	Warnings       []string       `json:"warnings"`
	Questions      []string       `json:"questions"`
}

// NewEventType is an event type the backend wants created.
type NewEventType struct {
	Name           string `json:"name"`
	SuggestedColor string `json:"suggestedColor,omitempty"`
}

// Action is one of CreateAction, UpdateAction, DeleteAction or InvalidAction.
type Action interface {
	Kind() string
	isAction()
}

// EventFields carries the event attributes proposed by the backend. The type
// is a name, resolved against the calendar by the applier.
type EventFields struct {
	Title     string
	Notes     *string
	StartDate time.Time
	EndDate   time.Time
	EventType string
}

// CreateAction inserts a new event.
type CreateAction struct {
	Event EventFields
}

// UpdateAction overwrites the mutable fields of an existing event. An empty
// title keeps the current one; nil notes keep the current notes.
type UpdateAction struct {
	ID    string
	Event EventFields
}

// DeleteAction removes an event. Title is informational only.
type DeleteAction struct {
	ID    string
	Title string
}

// InvalidAction is a wire action that could not be decoded into a usable
// action. It is kept so the applier can skip and report it.
type InvalidAction struct {
	Wire   string
	Reason string
	Raw    json.RawMessage
}

func (CreateAction) Kind() string  { return KindCreate }
func (UpdateAction) Kind() string  { return KindUpdate }
func (DeleteAction) Kind() string  { return KindDelete }
func (InvalidAction) Kind() string { return KindInvalid }

func (CreateAction) isAction()  {}
func (UpdateAction) isAction()  {}
func (DeleteAction) isAction()  {}
func (InvalidAction) isAction() {}

type wireEvent struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Notes     *string `json:"notes"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	EventType string  `json:"eventType"`
}

type wireAction struct {
	Action string    `json:"action"`
	ID     string    `json:"id"`
	Event  wireEvent `json:"event"`
}

type wireResult struct {
	Interpretation string            `json:"interpretation"`
	Actions        []json.RawMessage `json:"actions"`
	NewEventTypes  []NewEventType    `json:"newEventTypes"`
	Warnings       []string          `json:"warnings"`
	Questions      []string          `json:"questions"`
}

var fence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// extractPayload strips an optional code fence and keeps the span from the
// first '{' to the last '}'.
func extractPayload(text string) string {
	payload := text
	if m := fence.FindStringSubmatch(payload); m != nil {
		payload = strings.TrimSpace(m[1])
	}
	first := strings.Index(payload, "{")
	last := strings.LastIndex(payload, "}")
	if first != -1 && last != -1 && first < last {
		payload = payload[first : last+1]
	}
	return strings.TrimSpace(payload)
}

// ParseResult decodes the final text of the backend. Fenced payloads and
// surrounding prose are tolerated. Each malformed action becomes an
// InvalidAction rather than failing the whole result.
func ParseResult(text string) (Result, error) {
	payload := extractPayload(text)
	if !strings.HasSuffix(payload, "}") {
		return Result{}, ErrIncomplete
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	res := Result{
		Interpretation: wire.Interpretation,
		Actions:        make([]Action, 0, len(wire.Actions)),
		NewEventTypes:  nonNil(wire.NewEventTypes),
		Warnings:       nonNil(wire.Warnings),
		Questions:      nonNil(wire.Questions),
	}
	for _, raw := range wire.Actions {
		res.Actions = append(res.Actions, decodeAction(raw))
	}
	return res, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func decodeAction(raw json.RawMessage) Action {
	var w wireAction
	if err := json.Unmarshal(raw, &w); err != nil {
		return InvalidAction{Reason: fmt.Sprintf("malformed action: %v", err), Raw: raw}
	}
	invalid := func(reason string) Action {
		return InvalidAction{Wire: w.Action, Reason: reason, Raw: raw}
	}

	id := strings.TrimSpace(w.Event.ID)
	if id == "" {
		id = strings.TrimSpace(w.ID)
	}

	switch strings.ToLower(strings.TrimSpace(w.Action)) {
	case KindCreate:
		fields, err := decodeFields(w.Event, true)
		if err != nil {
			return invalid(err.Error())
		}
		return CreateAction{Event: fields}
	case KindUpdate:
		if id == "" {
			return invalid("update without an event id")
		}
		fields, err := decodeFields(w.Event, false)
		if err != nil {
			return invalid(err.Error())
		}
		return UpdateAction{ID: id, Event: fields}
	case KindDelete:
		if id == "" {
			return invalid("delete without an event id")
		}
		return DeleteAction{ID: id, Title: w.Event.Title}
	default:
		return invalid(fmt.Sprintf("unknown action %q", w.Action))
	}
}

func decodeFields(w wireEvent, requireTitle bool) (EventFields, error) {
	f := EventFields{
		Title:     strings.TrimSpace(w.Title),
		Notes:     w.Notes,
		EventType: strings.TrimSpace(w.EventType),
	}
	if requireTitle && f.Title == "" {
		return f, errors.New("event without a title")
	}

	var err error
	if f.StartDate, err = dates.ParseDate(w.StartDate); err != nil {
		return f, fmt.Errorf("start date: %w", err)
	}
	if f.EndDate, err = dates.ParseDate(w.EndDate); err != nil {
		return f, fmt.Errorf("end date: %w", err)
	}
	if f.EndDate.Before(f.StartDate) {
		return f, fmt.Errorf("end date %s is before start date %s", w.EndDate, w.StartDate)
	}
	return f, nil
}

// fallback builds a result that applies nothing and explains why.
func fallback(interpretation string, warnings ...string) Result {
	return Result{
		Interpretation: interpretation,
		Actions:        []Action{},
		NewEventTypes:  []NewEventType{},
		Warnings:       append([]string{}, warnings...),
		Questions:      []string{},
	}
}

// TruncatedResult is returned when the backend hit its output limit.
func TruncatedResult() Result {
	return fallback("The response was truncated because it was too long.",
		"Try splitting your request into several shorter instructions.")
}

// IncompleteResult is returned when the final payload was not closed.
func IncompleteResult() Result {
	return fallback("The response looks incomplete.",
		"The answer was cut off. Try a shorter request.")
}

// UnparseableResult is returned when the final payload is not a result.
func UnparseableResult() Result {
	return fallback("The request could not be interpreted.",
		"The answer could not be parsed. Try simplifying your request.")
}

// EmptyAnswerResult is returned when the final turn carried no text.
func EmptyAnswerResult() Result {
	return fallback("The interpretation service returned no text.", "Unexpected error.")
}

// FailureResult is returned for unknown stop reasons and when the loop runs
// out of iterations.
func FailureResult() Result {
	return fallback("Processing stopped: too many iterations or an unexpected reply.",
		"An error occurred while processing the request.")
}

// UnavailableResult is returned when the backend call failed.
func UnavailableResult() Result {
	return fallback("The interpretation service is unavailable.",
		"The request could not be processed. Please try again later.")
}

// TimeoutResult is returned when a round trip exceeded its budget.
func TimeoutResult() Result {
	return fallback("The interpretation service took too long to answer.",
		"The request timed out. Try again or simplify it.")
}

// CancelledResult is returned when the caller went away.
func CancelledResult() Result {
	return fallback("The request was cancelled.")
}

// Counts tallies the actions of r by kind.
func (r Result) Counts() map[string]int {
	counts := make(map[string]int, 4)
	for _, a := range r.Actions {
		counts[a.Kind()]++
	}
	return counts
}
