// Package anthropic adapts the Anthropic Messages API to interpret.Backend.
//
// Each Complete call converts the transcript and the date tool catalogue into
// one Messages request and maps the answer back: text blocks are joined,
// tool_use blocks become interpret.ToolCall values, and the stop reason is
// folded into interpret.StopReason.
package anthropic
