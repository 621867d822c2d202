// Package shell contains the imperative plumbing shared by the command handlers and event consumers:
// optimistic concurrency retry with exponential backoff, handler results, the JSON payload codec used
// for outbox events, and observability helpers that wrap command execution with logs, metrics and spans.
package shell
