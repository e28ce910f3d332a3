// Package server holds the process-level plumbing shared by the HTTP API and
// the MCP transports: the ServerContext with its shutdown context and
// instrumentation, Kubernetes style health endpoints that probe the
// calendar store and undo history, and a dedicated Prometheus metrics
// listener.
package server
