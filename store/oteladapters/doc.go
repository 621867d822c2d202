// Package oteladapters implements the store observability interfaces on top of OpenTelemetry.
//
// SlogBridgeLogger and ZapBridgeLogger forward log records to an OpenTelemetry LoggerProvider with
// trace correlation, MetricsCollector maps durations, counters and values to histograms, counters and
// gauges, and TracingCollector wraps a trace.Tracer.
package oteladapters
