package oteladapters

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Facupelli/equipment-rental/store"
)

const contextFieldKey = "context"

// ZapBridgeLogger logs through zap. Records go to the base core and, teed, to an OpenTelemetry
// LoggerProvider via the otelzap core. The context of the *Context methods travels as a skipped
// field, so only the otelzap core sees it and uses it for trace correlation.
type ZapBridgeLogger struct {
	logger *zap.Logger
}

// NewZapBridgeLogger tees base with an otelzap core on provider. A nil base logs to OpenTelemetry only.
func NewZapBridgeLogger(name string, base zapcore.Core, provider log.LoggerProvider) *ZapBridgeLogger {
	otelCore := otelzap.NewCore(name, otelzap.WithLoggerProvider(provider))

	core := zapcore.Core(otelCore)
	if base != nil {
		core = zapcore.NewTee(base, otelCore)
	}

	return &ZapBridgeLogger{logger: zap.New(core).Named(name)}
}

// NewZapLogger wraps an existing zap logger without any OpenTelemetry export.
func NewZapLogger(logger *zap.Logger) *ZapBridgeLogger {
	return &ZapBridgeLogger{logger: logger}
}

// Sync flushes buffered records of the underlying cores.
func (l *ZapBridgeLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapBridgeLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, toFields(args)...) }

func (l *ZapBridgeLogger) Info(msg string, args ...any) { l.logger.Info(msg, toFields(args)...) }

func (l *ZapBridgeLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, toFields(args)...) }

func (l *ZapBridgeLogger) Error(msg string, args ...any) { l.logger.Error(msg, toFields(args)...) }

func (l *ZapBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.Debug(msg, withContext(ctx, args)...)
}

func (l *ZapBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.Info(msg, withContext(ctx, args)...)
}

func (l *ZapBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.Warn(msg, withContext(ctx, args)...)
}

func (l *ZapBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.Error(msg, withContext(ctx, args)...)
}

func withContext(ctx context.Context, args []any) []zap.Field {
	fields := toFields(args)
	return append(fields, zap.Field{Key: contextFieldKey, Type: zapcore.SkipType, Interface: ctx})
}

// toFields converts slog-style key/value pairs. A dangling value is kept under "!BADKEY" like slog does.
func toFields(args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+1)

	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 == len(args) {
			fields = append(fields, zap.Any("!BADKEY", args[i]))
			continue
		}

		fields = append(fields, toField(key, args[i+1]))
		i++
	}

	return fields
}

func toField(key string, value any) zap.Field {
	switch v := value.(type) {
	case error:
		return zap.NamedError(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}

var (
	_ store.Logger           = (*ZapBridgeLogger)(nil)
	_ store.ContextualLogger = (*ZapBridgeLogger)(nil)
)
