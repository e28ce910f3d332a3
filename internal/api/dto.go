package api

import (
	"fmt"
	"time"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/dates"
	"github.com/teemow/calprompt/internal/interpret"
	"github.com/teemow/calprompt/internal/planner"
)

type calendarRequest struct {
	Name       string `json:"name" binding:"required"`
	SchoolZone string `json:"schoolZone"`
}

type promptRequest struct {
	Content string `json:"content"`
}

type resultBody struct {
	Interpretation string   `json:"interpretation"`
	Warnings       []string `json:"warnings"`
	Questions      []string `json:"questions"`
}

func newResultBody(r interpret.Result) resultBody {
	return resultBody{
		Interpretation: r.Interpretation,
		Warnings:       nonNil(r.Warnings),
		Questions:      nonNil(r.Questions),
	}
}

type promptResponse struct {
	Prompt calendar.Prompt `json:"prompt"`
	Result resultBody      `json:"result"`
	planner.Applied
	CreatedCount int `json:"createdCount"`
	UpdatedCount int `json:"updatedCount"`
	DeletedCount int `json:"deletedCount"`
	Iterations   int `json:"iterations"`
}

func newPromptResponse(out planner.PromptOutcome) promptResponse {
	return promptResponse{
		Prompt:       out.Prompt,
		Result:       newResultBody(out.Result),
		Applied:      out.Applied,
		CreatedCount: out.Applied.CreatedCount(),
		UpdatedCount: out.Applied.UpdatedCount(),
		DeletedCount: out.Applied.DeletedCount(),
		Iterations:   out.Iterations,
	}
}

// eventBody is an event as clients send it. Dates are YYYY-MM-DD or
// RFC 3339 timestamps.
type eventBody struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	EventTypeID string `json:"eventTypeId"`
	Notes       string `json:"notes"`
	Color       string `json:"color"`
	Order       *int   `json:"order"`
}

func (b eventBody) toEvent() (calendar.Event, error) {
	start, err := parseDateField("startDate", b.StartDate)
	if err != nil {
		return calendar.Event{}, err
	}
	end, err := parseDateField("endDate", b.EndDate)
	if err != nil {
		return calendar.Event{}, err
	}
	return calendar.Event{
		ID:          b.ID,
		Title:       b.Title,
		StartDate:   start,
		EndDate:     end,
		EventTypeID: b.EventTypeID,
		Notes:       b.Notes,
		Color:       b.Color,
		Order:       b.Order,
	}, nil
}

// eventPatchBody leaves absent fields untouched.
type eventPatchBody struct {
	Title       *string `json:"title"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	EventTypeID *string `json:"eventTypeId"`
	Notes       *string `json:"notes"`
	Color       *string `json:"color"`
	Order       *int    `json:"order"`
}

func (b eventPatchBody) toPatch() (calendar.EventPatch, error) {
	p := calendar.EventPatch{
		Title:       b.Title,
		EventTypeID: b.EventTypeID,
		Notes:       b.Notes,
		Color:       b.Color,
		Order:       b.Order,
	}
	if b.StartDate != nil {
		t, err := parseDateField("startDate", *b.StartDate)
		if err != nil {
			return calendar.EventPatch{}, err
		}
		p.StartDate = &t
	}
	if b.EndDate != nil {
		t, err := parseDateField("endDate", *b.EndDate)
		if err != nil {
			return calendar.EventPatch{}, err
		}
		p.EndDate = &t
	}
	return p, nil
}

func parseDateField(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := dates.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

type synthesisRequest struct {
	CurrentEvents []eventBody `json:"currentEvents"`
	SynthesisText string      `json:"synthesisText"`
}

type synthesisResponse struct {
	Interpretation string           `json:"interpretation"`
	Events         []calendar.Event `json:"events"`
}

type reorderRequest struct {
	EventIDs []string `json:"eventIds"`
}

type splitRequest struct {
	Date  string `json:"date"`
	Mode  string `json:"mode"`
	Title string `json:"title"`
}

type snapshotRequest struct {
	Name string `json:"name"`
}

// snapshotSummary leaves the state blob out of listings.
type snapshotSummary struct {
	ID        string    `json:"id"`
	PromptID  string    `json:"promptId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newSnapshotSummary(s calendar.Snapshot) snapshotSummary {
	return snapshotSummary{ID: s.ID, PromptID: s.PromptID, Name: s.Name(), CreatedAt: s.CreatedAt}
}

type restoreResponse struct {
	Events       []calendar.Event     `json:"events"`
	EventTypes   []calendar.EventType `json:"eventTypes"`
	SnapshotName string               `json:"snapshotName"`
}

type undoResponse struct {
	Tier              string               `json:"tier"`
	Label             string               `json:"label,omitempty"`
	UndonePrompt      *calendar.Prompt     `json:"undonePrompt"`
	DeletedEventIDs   []string             `json:"deletedEventIds"`
	CurrentEvents     []calendar.Event     `json:"currentEvents"`
	CurrentEventTypes []calendar.EventType `json:"currentEventTypes"`
	Warnings          []string             `json:"warnings"`
}

func newUndoResponse(out planner.UndoOutcome) undoResponse {
	return undoResponse{
		Tier:              out.Tier,
		Label:             out.Label,
		UndonePrompt:      out.UndonePrompt,
		DeletedEventIDs:   nonNil(out.DeletedEventIDs),
		CurrentEvents:     nonNil(out.CurrentEvents),
		CurrentEventTypes: nonNil(out.CurrentEventTypes),
		Warnings:          nonNil(out.Warnings),
	}
}

// nonNil keeps empty lists as [] on the wire.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
