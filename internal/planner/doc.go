// Package planner applies interpretations and direct edits to calendars.
//
// Applier turns the actions of an interpret.Result into store writes, in
// array order, skipping and reporting the ones it cannot apply. Service
// wraps it with everything around a calendar change: grounding and running
// the interpreter, recording prompts, splitting multi-day events, two-tier
// undo and named snapshots.
package planner
