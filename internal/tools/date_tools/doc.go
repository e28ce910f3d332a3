// Package date_tools exposes the deterministic date toolkit as named tools.
//
// The same catalogue serves two callers: the interpretation loop, which
// declares Catalogue.Tools to the reasoning backend and dispatches the calls
// it requests through Catalogue.Execute, and external MCP clients, which
// reach the tools through RegisterDateTools over stdio or streamable HTTP.
//
// Every tool answers with a dates.Result. Unknown tool names and malformed
// arguments are failures, never guesses.
package date_tools
