// Package observable decorates command and query handlers with logs, metrics and tracing spans.
package observable
