// Package logging holds the attribute keys and helpers used for structured
// logging with log/slog across calprompt.
//
//	logger := logging.WithCalendar(slog.Default(), calendarID)
//	logger.Info("prompt processed",
//	    logging.Instruction(content),
//	    logging.Status(logging.StatusSuccess))
//
// User instructions are truncated before they are logged; the full text
// lives in the prompt history.
package logging
