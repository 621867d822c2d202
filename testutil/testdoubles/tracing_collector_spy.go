package testdoubles

import (
	"context"
	"maps"
	"sync"

	"github.com/Facupelli/equipment-rental/store"
)

// SpySpanContext records status and attributes set on a span.
type SpySpanContext struct {
	name       string
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}

	c.attributes[key] = value
}

// SpySpanRecord represents a finished span.
type SpySpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
}

// TracingCollectorSpy captures tracing calls for testing.
type TracingCollectorSpy struct {
	started  map[*SpySpanContext]map[string]string
	finished []SpySpanRecord
	mu       sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{started: make(map[*SpySpanContext]map[string]string)}
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, store.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := &SpySpanContext{name: name}
	s.started[span] = maps.Clone(attrs)

	return ctx, span
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx store.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.finished = append(s.finished, SpySpanRecord{
		Name:            span.name,
		StartAttributes: s.started[span],
		Status:          status,
		EndAttributes:   maps.Clone(attrs),
	})
}

// FinishedSpans returns a copy of all finished spans.
func (s *TracingCollectorSpy) FinishedSpans() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpySpanRecord(nil), s.finished...)
}
