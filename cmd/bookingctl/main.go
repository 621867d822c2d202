// Command bookingctl drives the booking pipeline from a terminal.
//
// Global flags configure the database and telemetry (see shell/config), the first positional
// argument selects the subcommand:
//
//	bookingctl [global flags] <subcommand> [flags]
//
// Results are printed as JSON on stdout, logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Facupelli/equipment-rental/availability"
	"github.com/Facupelli/equipment-rental/facade"
	"github.com/Facupelli/equipment-rental/shell/config"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(2)
		}

		fmt.Fprintf(os.Stderr, "bookingctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) (err error) {
	cfg, rest, err := config.Load(args)
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		return errUsage
	}

	sub, ok := lookupSubcommand(rest[0])
	if !ok {
		return errors.Join(errUsage, fmt.Errorf("unknown subcommand %q", rest[0]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := config.NewTelemetry(ctx, cfg, stderr)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		err = errors.Join(err, telemetry.Shutdown(context.WithoutCancel(ctx)))
	}()

	st, closeStore, err := config.OpenStore(ctx, cfg, telemetry.StoreOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	engine, err := availability.NewEngine(st,
		availability.WithTurnaroundBuffer(cfg.TurnaroundBuffer),
		availability.WithContextualLogger(telemetry.Logger),
	)
	if err != nil {
		return err
	}

	calculator, err := config.NewCalculator(cfg)
	if err != nil {
		return err
	}

	bookings, err := facade.New(st, engine, calculator,
		facade.WithMetrics(telemetry.Metrics),
		facade.WithTracing(telemetry.Tracing),
		facade.WithContextualLogger(telemetry.Logger),
	)
	if err != nil {
		return err
	}

	a := &app{
		bookings: bookings,
		migrate:  st.Migrate,
		out:      stdout,
	}

	return sub.run(ctx, a, rest[1:])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: bookingctl [global flags] <subcommand> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "subcommands:")

	for _, sub := range subcommands {
		fmt.Fprintf(w, "  %-20s %s\n", sub.name, sub.summary)
	}
}
