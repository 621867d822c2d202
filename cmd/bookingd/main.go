// Command bookingd runs the outbox relay and the allocation consumers.
//
// It polls the outbox table, publishes every staged event to the in-process bus and lets the
// allocation handlers bind, hand over and release equipment units. Several instances may run side
// by side; the relay locks its batch with SKIP LOCKED.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Facupelli/equipment-rental/allocation"
	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/shell/config"
	"github.com/Facupelli/equipment-rental/shell/observable"
)

const (
	logMsgStarting      = "bookingd starting"
	logMsgStopped       = "bookingd stopped"
	logAttrAdapter      = "db_adapter"
	logAttrPollInterval = "poll_interval"
	logAttrBatchSize    = "batch_size"
	logAttrMaxAttempts  = "max_attempts"
	logAttrTurnaround   = "turnaround_buffer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bookingd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, _, err := config.Load(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := config.NewTelemetry(ctx, cfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if shutdownErr := telemetry.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			fmt.Fprintf(os.Stderr, "bookingd: telemetry shutdown: %v\n", shutdownErr)
		}
	}()

	st, closeStore, err := config.OpenStore(ctx, cfg, telemetry.StoreOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	handlerOptions := []allocation.Option{
		allocation.WithTurnaroundBuffer(cfg.TurnaroundBuffer),
		allocation.WithLogger(telemetry.Logger),
		allocation.WithContextualLogger(telemetry.Logger),
	}

	allocate, err := observable.NewCommandWrapper[allocation.Command](
		allocation.NewHandler(st, handlerOptions...),
		observable.WithCommandMetrics[allocation.Command](telemetry.Metrics),
		observable.WithCommandTracing[allocation.Command](telemetry.Tracing),
		observable.WithCommandContextualLogging[allocation.Command](telemetry.Logger),
	)
	if err != nil {
		return err
	}

	lifecycle, err := observable.NewCommandWrapper[allocation.LifecycleCommand](
		allocation.NewLifecycleHandler(st, handlerOptions...),
		observable.WithCommandMetrics[allocation.LifecycleCommand](telemetry.Metrics),
		observable.WithCommandTracing[allocation.LifecycleCommand](telemetry.Tracing),
		observable.WithCommandContextualLogging[allocation.LifecycleCommand](telemetry.Logger),
	)
	if err != nil {
		return err
	}

	bus := outbox.NewBus()
	allocation.Subscribe(bus, allocate, lifecycle)

	relayOptions := []outbox.Option{
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithContextualLogger(telemetry.Logger),
	}

	if telemetry.Metrics != nil {
		relayOptions = append(relayOptions, outbox.WithMetrics(telemetry.Metrics))
	}

	if telemetry.Tracing != nil {
		relayOptions = append(relayOptions, outbox.WithTracing(telemetry.Tracing))
	}

	relay, err := outbox.NewRelay(st, bus, relayOptions...)
	if err != nil {
		return err
	}

	telemetry.Logger.InfoContext(ctx, logMsgStarting,
		logAttrAdapter, cfg.Adapter,
		logAttrPollInterval, cfg.OutboxPollInterval.String(),
		logAttrBatchSize, cfg.OutboxBatchSize,
		logAttrMaxAttempts, cfg.OutboxMaxAttempts,
		logAttrTurnaround, cfg.TurnaroundBuffer.String(),
	)

	err = relay.Run(ctx)

	telemetry.Logger.InfoContext(context.WithoutCancel(ctx), logMsgStopped)

	return err
}
