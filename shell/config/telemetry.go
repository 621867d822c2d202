package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Facupelli/equipment-rental/store"
	"github.com/Facupelli/equipment-rental/store/oteladapters"
	"github.com/Facupelli/equipment-rental/store/postgresengine"
)

const (
	serviceVersion        = "dev"
	metricExportInterval  = 5 * time.Second
	traceBatchTimeout     = 5 * time.Second
	logExportTimeout      = 30 * time.Second
	telemetryShutdownWait = 5 * time.Second
)

// Logger is what every booking component accepts as its logger.
type Logger interface {
	store.Logger
	store.ContextualLogger
}

// Telemetry bundles the logger and the optional OpenTelemetry collectors of a process.
// Metrics and Tracing are nil unless OTel export is enabled.
type Telemetry struct {
	Logger  Logger
	Metrics store.MetricsCollector
	Tracing store.TracingCollector

	shutdownFuncs []func(context.Context) error
}

// NewTelemetry sets up OTLP export when cfg.OTelEnabled and builds the logger for cfg.LogBackend.
// Local log output goes to out.
func NewTelemetry(ctx context.Context, cfg Config, out io.Writer) (*Telemetry, error) {
	t := &Telemetry{}

	var loggerProvider *sdklog.LoggerProvider

	if cfg.OTelEnabled {
		res, err := resource.Merge(
			resource.Default(),
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(cfg.ServiceName),
				semconv.ServiceVersion(serviceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		tracerProvider, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, t.abort(err)
		}
		t.addShutdown(tracerProvider.Shutdown)

		meterProvider, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			return nil, t.abort(err)
		}
		t.addShutdown(meterProvider.Shutdown)

		if loggerProvider, err = newLoggerProvider(ctx, cfg, res); err != nil {
			return nil, t.abort(err)
		}
		t.addShutdown(loggerProvider.Shutdown)

		otel.SetTracerProvider(tracerProvider)
		otel.SetMeterProvider(meterProvider)
		global.SetLoggerProvider(loggerProvider)

		t.Tracing = oteladapters.NewTracingCollector(tracerProvider.Tracer(cfg.ServiceName))
		t.Metrics = oteladapters.NewMetricsCollector(meterProvider.Meter(cfg.ServiceName))
	}

	logger, err := newLogger(cfg, out)
	if err != nil {
		return nil, t.abort(err)
	}

	t.Logger = logger

	return t, nil
}

// StoreOptions returns the postgresengine options carrying this telemetry.
func (t *Telemetry) StoreOptions() []postgresengine.Option {
	options := []postgresengine.Option{
		postgresengine.WithLogger(t.Logger),
		postgresengine.WithContextualLogger(t.Logger),
	}

	if t.Metrics != nil {
		options = append(options, postgresengine.WithMetrics(t.Metrics))
	}

	if t.Tracing != nil {
		options = append(options, postgresengine.WithTracing(t.Tracing))
	}

	return options
}

// Shutdown flushes and stops the providers in reverse order of creation.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, telemetryShutdownWait)
	defer cancel()

	var errs error
	for i := len(t.shutdownFuncs) - 1; i >= 0; i-- {
		errs = errors.Join(errs, t.shutdownFuncs[i](ctx))
	}

	t.shutdownFuncs = nil

	if syncer, ok := t.Logger.(interface{ Sync() error }); ok {
		// zap returns an error for syncing stdout on some platforms, nothing to do about it
		_ = syncer.Sync()
	}

	return errs
}

func (t *Telemetry) addShutdown(fn func(context.Context) error) {
	t.shutdownFuncs = append(t.shutdownFuncs, fn)
}

func (t *Telemetry) abort(err error) error {
	return errors.Join(err, t.Shutdown(context.Background()))
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to setup OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(traceBatchTimeout)),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTelEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to setup OTLP metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(cfg.OTelLogsEndpoint),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to setup OTLP log exporter: %w", err)
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(logExportTimeout))),
	), nil
}

// newLogger builds the logger for cfg.LogBackend. The otel and zap backends ship records through
// the global logger provider, which is a no-op unless NewTelemetry installed an exporting one.
func newLogger(cfg Config, out io.Writer) (Logger, error) {
	switch cfg.LogBackend {
	case LogBackendSlog:
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}

		return oteladapters.NewSlogBridgeLoggerWithHandler(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}),
		), nil

	case LogBackendOTel:
		return oteladapters.NewSlogBridgeLoggerWithProvider(cfg.ServiceName, global.GetLoggerProvider()), nil

	case LogBackendZap:
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		console := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(zapcore.AddSync(out)), level)

		return oteladapters.NewZapBridgeLogger(cfg.ServiceName, console, global.GetLoggerProvider()), nil

	default:
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("unknown log backend %q", cfg.LogBackend))
	}
}
