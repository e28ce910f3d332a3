package logging

import (
	"io"
	"log/slog"
	"unicode/utf8"
)

// Common log attribute keys.
const (
	KeyOperation   = "operation"
	KeyCalendar    = "calendar_id"
	KeyPrompt      = "prompt_id"
	KeyEvent       = "event_id"
	KeyIteration   = "iteration"
	KeyStopReason  = "stop_reason"
	KeyInstruction = "instruction"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyError       = "error"
	KeyTool        = "tool"
)

// Status values, duplicated from instrumentation so that package can import
// this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaxInstructionLength caps how much of a user instruction is logged.
const MaxInstructionLength = 120

// NewLogger returns a text logger writing to w, at debug level when debug
// is set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithCalendar returns a logger with the calendar attribute set.
func WithCalendar(logger *slog.Logger, calendarID string) *slog.Logger {
	return logger.With(slog.String(KeyCalendar, calendarID))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Calendar returns a slog attribute for a calendar id.
func Calendar(id string) slog.Attr {
	return slog.String(KeyCalendar, id)
}

// Prompt returns a slog attribute for a prompt id.
func Prompt(id string) slog.Attr {
	return slog.String(KeyPrompt, id)
}

// Event returns a slog attribute for an event id.
func Event(id string) slog.Attr {
	return slog.String(KeyEvent, id)
}

// Iteration returns a slog attribute for a reasoning round trip number.
func Iteration(n int) slog.Attr {
	return slog.Int(KeyIteration, n)
}

// StopReason returns a slog attribute for a backend stop reason.
func StopReason(reason string) slog.Attr {
	return slog.String(KeyStopReason, reason)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Instruction returns the user instruction, cut to MaxInstructionLength runes.
func Instruction(text string) slog.Attr {
	return slog.String(KeyInstruction, Truncate(text, MaxInstructionLength))
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// Err returns a slog attribute for an error. A nil error yields an empty
// group, which slog omits.
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}
