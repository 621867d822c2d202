package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Facupelli/equipment-rental/store"
)

const (
	metricOperationDuration    = "booking_store_operation_duration_seconds"
	metricRowsAffected         = "booking_store_rows_affected"
	metricDatabaseErrors       = "booking_store_database_errors_total"
	metricConcurrencyConflicts = "booking_store_concurrency_conflicts_total"
	spanNamePrefix             = "booking_store."
	spanAttrOperation          = "operation"
	spanAttrErrorType          = "error_type"
	spanAttrDurationMS         = "duration_ms"
	spanAttrRowCount           = "row_count"
	labelStatus                = "status"
	labelConflictType          = "conflict_type"
	statusSuccess              = "success"
	statusError                = "error"
	errorTypeConflict          = "concurrency_conflict"
	errorTypeNotFound          = "not_found"
	errorTypeDuplicate         = "duplicate_key"
	errorTypeCanceled          = "context_canceled"
	errorTypeDeadline          = "context_deadline_exceeded"
	errorTypeDatabase          = "database"
)

// operationObserver tracks one repository call: its span, its duration and the rows it touched.
type operationObserver struct {
	s         Store
	ctx       context.Context
	operation string
	span      store.SpanContext
	start     time.Time
	rows      int
}

// observe starts a span for the operation and returns the observer plus the span's context.
func (s Store) observe(ctx context.Context, operation string) (*operationObserver, context.Context) {
	newCtx, span := s.startTraceSpan(ctx, spanNamePrefix+operation, map[string]string{spanAttrOperation: operation})

	return &operationObserver{
		s:         s,
		ctx:       newCtx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, newCtx
}

// addRows counts rows read or written by the operation.
func (o *operationObserver) addRows(n int) {
	o.rows += n
}

// finish records duration, error and conflict metrics and closes the span.
func (o *operationObserver) finish(err error) {
	duration := time.Since(o.start)

	if err == nil {
		o.s.recordDurationMetricsContext(o.ctx, metricOperationDuration, duration, o.operation, statusSuccess)
		o.s.recordValueMetricsContext(o.ctx, metricRowsAffected, float64(o.rows), o.operation, statusSuccess)
		o.s.finishTraceSpan(o.span, statusSuccess, map[string]string{
			spanAttrRowCount:   fmt.Sprintf("%d", o.rows),
			spanAttrDurationMS: formatDuration(duration),
		})

		return
	}

	errorType := classifyError(err)

	o.s.recordDurationMetricsContext(o.ctx, metricOperationDuration, duration, o.operation, statusError)

	if errorType == errorTypeConflict {
		o.s.recordConcurrencyConflictMetrics(o.ctx, o.operation)
	} else {
		o.s.recordErrorMetricsContext(o.ctx, o.operation, errorType)
	}

	o.s.finishTraceSpan(o.span, statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: formatDuration(duration),
	})
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, store.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, store.ErrNotFound):
		return errorTypeNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return errorTypeDuplicate
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeDeadline
	default:
		return errorTypeDatabase
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s Store) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (s Store) logOperation(ctx context.Context, action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (s Store) logWarn(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.logger != nil {
		s.logger.Warn(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

// logError logs error information at the error level.
func (s Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

func (s Store) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextualCollector, ok := s.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metricName, duration, labels)
}

func (s Store) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	operation, status string,
) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextualCollector, ok := s.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metricName, value, labels)
}

func (s Store) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := s.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
}

func (s Store) recordConcurrencyConflictMetrics(ctx context.Context, operation string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelConflictType: "version",
	}

	if contextualCollector, ok := s.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricConcurrencyConflicts, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metricConcurrencyConflicts, labels)
}

func (s Store) startTraceSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, store.SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}

	return s.tracingCollector.StartSpan(ctx, name, attrs)
}

func (s Store) finishTraceSpan(span store.SpanContext, status string, attrs map[string]string) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	s.tracingCollector.FinishSpan(span, status, attrs)
}
