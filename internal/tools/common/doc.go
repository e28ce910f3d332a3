// Package common provides shared helpers for MCP tool implementations:
// the instrumentation wrapper applied to every registered handler and the
// argument readers that tolerate the loose typing of JSON tool arguments.
package common
