// Package cmd implements the command-line interface for calprompt.
//
// This package provides the following commands:
//   - serve: Start the HTTP API and MCP server
//   - migrate: Apply or roll back the PostgreSQL schema
//   - calendar: Create calendars and run instructions against them
//   - holidays: Print the public and school holidays of a year
//   - date: Run one of the date tools
//   - generate-docs: Generate markdown documentation for the MCP tools
//   - version: Display version information
package cmd
