package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Adapter names accepted by DB_ADAPTER and -db-adapter.
const (
	AdapterPGXPool = "pgx.pool"
	AdapterSQLDB   = "sql.db"
	AdapterSQLXDB  = "sqlx.db"
)

// Log backends accepted by LOG_BACKEND and -log-backend.
const (
	LogBackendSlog = "slog"
	LogBackendOTel = "otel"
	LogBackendZap  = "zap"
)

const (
	envDatabaseURL        = "DATABASE_URL"
	envReplicaURL         = "DATABASE_REPLICA_URL"
	envDBHost             = "DB_HOST"
	envDBPort             = "DB_PORT"
	envDBUsername         = "DB_USERNAME"
	envDBPassword         = "DB_PASSWORD"
	envDBName             = "DB_NAME"
	envDBSSLMode          = "DB_SSLMODE"
	envDBAdapter          = "DB_ADAPTER"
	envOutboxPollInterval = "OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize    = "OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts  = "OUTBOX_MAX_ATTEMPTS"
	envTurnaroundBuffer   = "TURNAROUND_BUFFER"
	envRateCardsPath      = "RATE_CARDS_PATH"
	envOTelEnabled        = "OTEL_ENABLED"
	envOTelEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTelLogsEndpoint   = "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"
	envServiceName        = "OTEL_SERVICE_NAME"
	envLogLevel           = "LOG_LEVEL"
	envLogBackend         = "LOG_BACKEND"

	defaultDBHost             = "localhost"
	defaultDBPort             = "5432"
	defaultDBUsername         = "booking"
	defaultDBPassword         = "booking"
	defaultDBName             = "booking"
	defaultDBSSLMode          = "disable"
	defaultOutboxPollInterval = 2 * time.Second
	defaultOutboxBatchSize    = 100
	defaultOTelEndpoint       = "localhost:4317"
	defaultOTelLogsEndpoint   = "localhost:4318"
	defaultServiceName        = "equipment-rental"
	defaultLogLevel           = "info"
)

// ErrInvalidConfig is returned when an environment variable or flag holds an unusable value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything the booking binaries need to wire the pipeline.
type Config struct {
	DatabaseURL string
	ReplicaURL  string
	Adapter     string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	TurnaroundBuffer time.Duration
	RateCardsPath    string

	OTelEnabled      bool
	OTelEndpoint     string
	OTelLogsEndpoint string
	ServiceName      string

	LogLevel   string
	LogBackend string
}

// Load reads the environment and then parses args, which override it. Parsing stops at the first
// non-flag argument; the remaining arguments are returned for subcommands.
func Load(args []string) (Config, []string, error) {
	return LoadFrom(args, os.Getenv)
}

// LoadFrom is Load with an explicit environment lookup.
func LoadFrom(args []string, getenv func(string) string) (Config, []string, error) {
	env := environment{getenv: getenv}

	cfg := Config{
		DatabaseURL:      env.str(envDatabaseURL, ""),
		ReplicaURL:       env.str(envReplicaURL, ""),
		Adapter:          env.str(envDBAdapter, AdapterPGXPool),
		RateCardsPath:    env.str(envRateCardsPath, ""),
		OTelEndpoint:     env.str(envOTelEndpoint, defaultOTelEndpoint),
		OTelLogsEndpoint: env.str(envOTelLogsEndpoint, defaultOTelLogsEndpoint),
		ServiceName:      env.str(envServiceName, defaultServiceName),
		LogLevel:         env.str(envLogLevel, defaultLogLevel),
		LogBackend:       env.str(envLogBackend, LogBackendSlog),
	}

	cfg.OutboxPollInterval = env.duration(envOutboxPollInterval, defaultOutboxPollInterval)
	cfg.OutboxBatchSize = env.integer(envOutboxBatchSize, defaultOutboxBatchSize)
	cfg.OutboxMaxAttempts = env.integer(envOutboxMaxAttempts, 0)
	cfg.TurnaroundBuffer = env.duration(envTurnaroundBuffer, 0)
	cfg.OTelEnabled = env.boolean(envOTelEnabled, false)

	if env.err != nil {
		return Config{}, nil, env.err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDSN(
			env.str(envDBHost, defaultDBHost),
			env.str(envDBPort, defaultDBPort),
			env.str(envDBUsername, defaultDBUsername),
			env.str(envDBPassword, defaultDBPassword),
			env.str(envDBName, defaultDBName),
			env.str(envDBSSLMode, defaultDBSSLMode),
		)
	}

	fs := flag.NewFlagSet("booking", flag.ContinueOnError)
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection string")
	fs.StringVar(&cfg.ReplicaURL, "replica-url", cfg.ReplicaURL, "optional read replica connection string")
	fs.StringVar(&cfg.Adapter, "db-adapter", cfg.Adapter, "database adapter: pgx.pool, sql.db or sqlx.db")
	fs.DurationVar(&cfg.OutboxPollInterval, "outbox-poll-interval", cfg.OutboxPollInterval, "outbox relay poll interval")
	fs.IntVar(&cfg.OutboxBatchSize, "outbox-batch-size", cfg.OutboxBatchSize, "outbox events per relay tick")
	fs.IntVar(&cfg.OutboxMaxAttempts, "outbox-max-attempts", cfg.OutboxMaxAttempts, "publish attempts before an event is parked, 0 retries forever")
	fs.DurationVar(&cfg.TurnaroundBuffer, "turnaround-buffer", cfg.TurnaroundBuffer, "time a returned unit needs before it can be rented again")
	fs.StringVar(&cfg.RateCardsPath, "rate-cards", cfg.RateCardsPath, "path to a JSON file with rate cards")
	fs.BoolVar(&cfg.OTelEnabled, "otel", cfg.OTelEnabled, "export traces, metrics and logs via OTLP")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP gRPC endpoint for traces and metrics")
	fs.StringVar(&cfg.OTelLogsEndpoint, "otel-logs-endpoint", cfg.OTelLogsEndpoint, "OTLP HTTP endpoint for logs")
	fs.StringVar(&cfg.ServiceName, "service-name", cfg.ServiceName, "service name reported to OpenTelemetry")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.LogBackend, "log-backend", cfg.LogBackend, "log backend: slog, otel or zap")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, errors.Join(ErrInvalidConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, nil, err
	}

	return cfg, fs.Args(), nil
}

func (c Config) validate() error {
	switch c.Adapter {
	case AdapterPGXPool, AdapterSQLDB, AdapterSQLXDB:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown database adapter %q", c.Adapter))
	}

	switch c.LogBackend {
	case LogBackendSlog, LogBackendOTel, LogBackendZap:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown log backend %q", c.LogBackend))
	}

	if c.OutboxPollInterval <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("outbox poll interval must be positive, got %s", c.OutboxPollInterval))
	}

	if c.OutboxBatchSize <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("outbox batch size must be positive, got %d", c.OutboxBatchSize))
	}

	if c.OutboxMaxAttempts < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("outbox max attempts must not be negative, got %d", c.OutboxMaxAttempts))
	}

	if c.TurnaroundBuffer < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("turnaround buffer must not be negative, got %s", c.TurnaroundBuffer))
	}

	return nil
}

func buildDSN(host, port, username, password, name, sslMode string) string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(username, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}

	return dsn.String()
}

// environment collects the first parse error so Load can report it once.
type environment struct {
	getenv func(string) string
	err    error
}

func (e *environment) str(key, fallback string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}

	return fallback
}

func (e *environment) duration(key string, fallback time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}

	return value
}

func (e *environment) integer(key string, fallback int) int {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}

	return value
}

func (e *environment) boolean(key string, fallback bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}

	return value
}

func (e *environment) fail(key, raw string, err error) {
	if e.err == nil {
		e.err = errors.Join(ErrInvalidConfig, fmt.Errorf("%s=%q: %w", key, raw, err))
	}
}
