package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Facupelli/equipment-rental/store/oteladapters"
)

func Test_SlogBridgeLogger_WithHandler_WritesRecords(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)

	// act
	logger.Info("outbox relay started", "poll_interval", "5s")
	logger.ErrorContext(context.Background(), "outbox event publish failed", "event_type", "ReservationConfirmed")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"msg":"outbox relay started"`)
	assert.Contains(t, output, `"poll_interval":"5s"`)
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"event_type":"ReservationConfirmed"`)
}

func Test_SlogBridgeLogger_WithProvider_DoesNotPanic(t *testing.T) {
	// arrange
	logger := oteladapters.NewSlogBridgeLoggerWithProvider("test", noop.NewLoggerProvider())
	ctx := context.Background()

	// act + assert
	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug", "key", "value")
		logger.InfoContext(ctx, "info", "key", "value")
		logger.WarnContext(ctx, "warn", "key", "value")
		logger.ErrorContext(ctx, "error", "key", "value")
	})
}

func Test_ZapBridgeLogger_WritesFieldsToBaseCore(t *testing.T) {
	// arrange
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := oteladapters.NewZapBridgeLogger("booking", core, noop.NewLoggerProvider())

	// act
	logger.WarnContext(context.Background(), "outbox event parked after max attempts",
		"event_type", "ReservationConfirmed",
		"attempts", 5,
		"error", errors.New("handler failed"),
	)
	logger.Debug("executed sql for: query", "duration_ms", 1.5)

	// assert
	entries := recorded.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "outbox event parked after max attempts", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ReservationConfirmed", fields["event_type"])
	assert.EqualValues(t, 5, fields["attempts"])
	assert.Equal(t, "handler failed", fields["error"])
	assert.NotContains(t, fields, "context")

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.InDelta(t, 1.5, entries[1].ContextMap()["duration_ms"], 0.0001)
}

func Test_ZapBridgeLogger_KeepsDanglingValue(t *testing.T) {
	// arrange
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := oteladapters.NewZapBridgeLogger("booking", core, noop.NewLoggerProvider())

	// act
	logger.Info("odd args", "key", "value", "dangling")

	// assert
	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "dangling", entries[0].ContextMap()["!BADKEY"])
	assert.Equal(t, "value", entries[0].ContextMap()["key"])
}
