package testdoubles

import (
	"context"
	"sync"
)

// SpyLogRecord represents a recorded log call.
type SpyLogRecord struct {
	Level   string
	Message string
	Args    []any
}

// LoggerSpy captures log calls for testing. It implements both store.Logger and store.ContextualLogger.
type LoggerSpy struct {
	records []SpyLogRecord
	mu      sync.Mutex
}

// NewLoggerSpy creates a new LoggerSpy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

func (s *LoggerSpy) record(level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyLogRecord{Level: level, Message: msg, Args: args})
}

func (s *LoggerSpy) Debug(msg string, args ...any) { s.record("debug", msg, args) }
func (s *LoggerSpy) Info(msg string, args ...any)  { s.record("info", msg, args) }
func (s *LoggerSpy) Warn(msg string, args ...any)  { s.record("warn", msg, args) }
func (s *LoggerSpy) Error(msg string, args ...any) { s.record("error", msg, args) }

func (s *LoggerSpy) DebugContext(_ context.Context, msg string, args ...any) { s.record("debug", msg, args) }
func (s *LoggerSpy) InfoContext(_ context.Context, msg string, args ...any)  { s.record("info", msg, args) }
func (s *LoggerSpy) WarnContext(_ context.Context, msg string, args ...any)  { s.record("warn", msg, args) }
func (s *LoggerSpy) ErrorContext(_ context.Context, msg string, args ...any) { s.record("error", msg, args) }

// HasRecord reports whether a message was logged at the given level.
func (s *LoggerSpy) HasRecord(level, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Level == level && r.Message == msg {
			return true
		}
	}

	return false
}

// Records returns a copy of all captured records.
func (s *LoggerSpy) Records() []SpyLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyLogRecord(nil), s.records...)
}
