// Package api exposes the planner over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teemow/calprompt/internal/calendar"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/planner"
)

// Error is an HTTP error answer.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// HandlerFunc returns the JSON body of a successful answer, or an Error.
type HandlerFunc func(c *gin.Context) (any, *Error)

// Resolve adapts a HandlerFunc to gin. Errors are sent as {"error": msg}.
func Resolve(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, apiErr := h(c)
		if apiErr != nil {
			c.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func badRequest(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: msg}
}

// internalMessage is all clients learn about unexpected failures.
const internalMessage = "internal server error"

// fromError maps service errors to HTTP answers. Unexpected errors are
// logged and hidden from the client.
func fromError(logger logging.Logger, err error) *Error {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		return &Error{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, calendar.ErrDuplicateName):
		return &Error{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, calendar.ErrInvalidEvent),
		errors.Is(err, planner.ErrEmptyPrompt),
		errors.Is(err, planner.ErrInvalidSplit),
		errors.Is(err, planner.ErrNothingToUndo),
		errors.Is(err, holidays.ErrInvalidZone):
		return badRequest(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: http.StatusServiceUnavailable, Message: "request cancelled"}
	}
	logger.Error("request failed", logging.Err(err))
	return &Error{Code: http.StatusInternalServerError, Message: internalMessage}
}
