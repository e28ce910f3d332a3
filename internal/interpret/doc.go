// Package interpret turns a natural-language calendar instruction into a
// structured Result.
//
// BuildGrounding assembles the context of a request: today's date, a
// fourteen-month weekday reference table, the existing events annotated
// with the holidays and weekend days they overlap, the event types, and the
// public and school holidays of the current and next year. The bundle is
// rendered into the system instruction by Grounding.SystemPrompt.
//
// Interpreter.Interpret then drives a Backend in a loop of at most
// MaxIterations round trips. A tool-use turn runs every requested date tool
// and answers each call by id; a final turn is parsed with ParseResult; a
// truncated turn, a backend error, a timeout or an unknown stop reason ends
// the loop with a fallback Result that applies nothing and explains why.
//
// The Action variants form a closed set: CreateAction, UpdateAction,
// DeleteAction and InvalidAction.
package interpret
