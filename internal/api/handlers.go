package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/ics"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/planner"
)

// handlers binds the routes to the planner service.
type handlers struct {
	svc    *planner.Service
	logger logging.Logger
	now    func() time.Time
}

func (h *handlers) fail(err error) *Error {
	return fromError(h.logger, err)
}

// POST /calendars
func (h *handlers) createCalendar(c *gin.Context) (any, *Error) {
	var req calendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	cal, err := h.svc.CreateCalendar(c.Request.Context(), req.Name, req.SchoolZone)
	if err != nil {
		return nil, h.fail(err)
	}
	return cal, nil
}

// GET /calendars/:id
func (h *handlers) getCalendar(c *gin.Context) (any, *Error) {
	cal, err := h.svc.GetCalendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, h.fail(err)
	}
	return cal, nil
}

// GET /calendars/:id/holidays?year=
func (h *handlers) holidays(c *gin.Context) (any, *Error) {
	year := h.now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1583 || y > 9999 {
			return nil, badRequest("year must be a Gregorian year")
		}
		year = y
	}
	listing, err := h.svc.Holidays(c.Request.Context(), c.Param("id"), year)
	if err != nil {
		return nil, h.fail(err)
	}
	return listing, nil
}

// GET /calendars/:id/export.ics
func (h *handlers) exportICS(c *gin.Context) {
	ctx := c.Request.Context()
	cal, err := h.svc.GetCalendar(ctx, c.Param("id"))
	if err != nil {
		e := h.fail(err)
		c.JSON(e.Code, gin.H{"error": e.Message})
		return
	}
	events, err := h.svc.ListEvents(ctx, cal.ID)
	if err != nil {
		e := h.fail(err)
		c.JSON(e.Code, gin.H{"error": e.Message})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+icsFilename(cal)+`"`)
	c.Data(http.StatusOK, ics.ContentType, []byte(ics.Export(cal, events)))
}

func icsFilename(cal calendar.Calendar) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, cal.Name)
	if name == "" {
		name = "calendar"
	}
	return name + ".ics"
}

// POST /calendars/:id/prompts
func (h *handlers) processPrompt(c *gin.Context) (any, *Error) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	out, err := h.svc.ProcessPrompt(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		return nil, h.fail(err)
	}
	return newPromptResponse(out), nil
}

// GET /calendars/:id/prompts
func (h *handlers) listPrompts(c *gin.Context) (any, *Error) {
	prompts, err := h.svc.ListPrompts(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, h.fail(err)
	}
	return prompts, nil
}

// POST /calendars/:id/synthesis
func (h *handlers) synthesize(c *gin.Context) (any, *Error) {
	var req synthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	var current []calendar.Event
	if req.CurrentEvents != nil {
		current = make([]calendar.Event, 0, len(req.CurrentEvents))
		for _, b := range req.CurrentEvents {
			e, err := b.toEvent()
			if err != nil {
				return nil, badRequest(err.Error())
			}
			current = append(current, e)
		}
	}
	out, err := h.svc.Synthesize(c.Request.Context(), c.Param("id"), current, req.SynthesisText)
	if err != nil {
		return nil, h.fail(err)
	}
	return synthesisResponse{Interpretation: out.Interpretation, Events: nonNil(out.Events)}, nil
}

// POST /calendars/:id/undo
func (h *handlers) undo(c *gin.Context) (any, *Error) {
	out, err := h.svc.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, h.fail(err)
	}
	return newUndoResponse(out), nil
}

// GET /calendars/:id/snapshots
func (h *handlers) listSnapshots(c *gin.Context) (any, *Error) {
	snaps, err := h.svc.ListSnapshots(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, h.fail(err)
	}
	out := make([]snapshotSummary, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, newSnapshotSummary(s))
	}
	return out, nil
}

// POST /calendars/:id/snapshots
func (h *handlers) createSnapshot(c *gin.Context) (any, *Error) {
	var req snapshotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, badRequest(err.Error())
		}
	}
	snap, err := h.svc.CreateSnapshot(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		return nil, h.fail(err)
	}
	return newSnapshotSummary(snap), nil
}

// POST /calendars/:id/snapshots/:snapshotId/restore
func (h *handlers) restoreSnapshot(c *gin.Context) (any, *Error) {
	out, err := h.svc.RestoreSnapshot(c.Request.Context(), c.Param("id"), c.Param("snapshotId"))
	if err != nil {
		return nil, h.fail(err)
	}
	return restoreResponse{
		Events:       nonNil(out.Events),
		EventTypes:   nonNil(out.EventTypes),
		SnapshotName: out.SnapshotName,
	}, nil
}

// GET /calendars/:id/events
func (h *handlers) listEvents(c *gin.Context) (any, *Error) {
	events, err := h.svc.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, h.fail(err)
	}
	return events, nil
}

// GET /calendars/:id/event-types
func (h *handlers) listEventTypes(c *gin.Context) (any, *Error) {
	types, err := h.svc.ListEventTypes(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, h.fail(err)
	}
	return types, nil
}

// POST /calendars/:id/events
func (h *handlers) createEvent(c *gin.Context) (any, *Error) {
	var req eventBody
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	e, err := req.toEvent()
	if err != nil {
		return nil, badRequest(err.Error())
	}
	created, err := h.svc.CreateEvent(c.Request.Context(), c.Param("id"), e)
	if err != nil {
		return nil, h.fail(err)
	}
	return created, nil
}

// PUT /calendars/:id/events/:eventId
func (h *handlers) updateEvent(c *gin.Context) (any, *Error) {
	var req eventPatchBody
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	patch, err := req.toPatch()
	if err != nil {
		return nil, badRequest(err.Error())
	}
	updated, err := h.svc.UpdateEvent(c.Request.Context(), c.Param("id"), c.Param("eventId"), patch)
	if err != nil {
		return nil, h.fail(err)
	}
	return updated, nil
}

// DELETE /calendars/:id/events/:eventId
func (h *handlers) deleteEvent(c *gin.Context) (any, *Error) {
	if err := h.svc.DeleteEvent(c.Request.Context(), c.Param("id"), c.Param("eventId")); err != nil {
		return nil, h.fail(err)
	}
	return gin.H{"success": true}, nil
}

// POST /calendars/:id/events/reorder
func (h *handlers) reorderEvents(c *gin.Context) (any, *Error) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	events, err := h.svc.ReorderEvents(c.Request.Context(), c.Param("id"), req.EventIDs)
	if err != nil {
		return nil, h.fail(err)
	}
	return events, nil
}

// POST /calendars/:id/events/:eventId/split
func (h *handlers) splitEvent(c *gin.Context) (any, *Error) {
	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	day, err := parseDateField("date", req.Date)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	mode := planner.SplitMode(req.Mode)
	if mode == "" {
		mode = planner.SplitExclude
	}
	out, err := h.svc.SplitEvent(c.Request.Context(), c.Param("id"), c.Param("eventId"),
		planner.SplitRequest{Date: day, Mode: mode, Title: req.Title})
	if err != nil {
		return nil, h.fail(err)
	}
	return out, nil
}
