package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Facupelli/equipment-rental/store/oteladapters"
)

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

	// act
	ctx, span := collector.StartSpan(context.Background(), "booking_store.insert_reservation_order", map[string]string{
		"operation": "insert_reservation_order",
	})
	collector.FinishSpan(span, "success", map[string]string{"row_count": "3"})

	// assert
	require.NotNil(t, ctx)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "booking_store.insert_reservation_order", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "operation", "insert_reservation_order")
	assertSpanHasAttribute(t, spans[0], "row_count", "3")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	testCases := []struct {
		status       string
		expectedCode codes.Code
		expectedDesc string
	}{
		{status: "success", expectedCode: codes.Ok},
		{status: "idempotent", expectedCode: codes.Ok},
		{status: "error", expectedCode: codes.Error, expectedDesc: "operation failed"},
		{status: "canceled", expectedCode: codes.Error, expectedDesc: "operation cancelled"},
		{status: "timeout", expectedCode: codes.Error, expectedDesc: "operation timed out"},
		{status: "concurrency_conflict", expectedCode: codes.Error, expectedDesc: "concurrency conflict"},
		{status: "parked", expectedCode: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			// arrange
			exporter := tracetest.NewInMemoryExporter()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

			// act
			_, span := collector.StartSpan(context.Background(), "op", nil)
			collector.FinishSpan(span, tc.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
			assert.Equal(t, tc.expectedDesc, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_UnknownStatusBecomesAttribute(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

	// act
	_, span := collector.StartSpan(context.Background(), "op", nil)
	span.AddAttribute("event_type", "ReservationConfirmed")
	collector.FinishSpan(span, "parked", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "status", "parked")
	assertSpanHasAttribute(t, spans[0], "event_type", "ReservationConfirmed")
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expected string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, expected, attr.Value.AsString(), "attribute %s", key)
			return
		}
	}

	assert.Failf(t, "missing span attribute", "attribute %s not found", key)
}
