package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/Facupelli/equipment-rental/store/postgresengine"
)

const (
	pgxMaxConnections   = int32(50)
	pgxMinConnections   = int32(2)
	sqlMaxOpenConns     = 50
	sqlMaxIdleConns     = 2
	poolMaxConnLifetime = time.Hour
	poolMaxConnIdleTime = 5 * time.Minute
	poolHealthCheck     = time.Minute
	poolConnectTimeout  = 5 * time.Second
	driverNamePostgres  = "postgres"
)

// ErrConnectingDatabase is returned when a pool could not be created or did not answer a ping.
var ErrConnectingDatabase = errors.New("connecting to database failed")

// NewPGXPool creates a tuned pgx pool and pings it.
func NewPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	poolConfig.MaxConns = pgxMaxConnections
	poolConfig.MinConns = pgxMinConnections
	poolConfig.MaxConnLifetime = poolMaxConnLifetime
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime
	poolConfig.HealthCheckPeriod = poolHealthCheck
	poolConfig.ConnConfig.ConnectTimeout = poolConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	return pool, nil
}

// NewSQLDB opens a tuned database/sql pool on lib/pq and pings it.
func NewSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverNamePostgres, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	tuneSQLPool(db)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	return db, nil
}

// NewSQLX opens a tuned sqlx pool on lib/pq and pings it.
func NewSQLX(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverNamePostgres, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	tuneSQLPool(db.DB)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	return db, nil
}

func tuneSQLPool(db *sql.DB) {
	db.SetMaxOpenConns(sqlMaxOpenConns)
	db.SetMaxIdleConns(sqlMaxIdleConns)
	db.SetConnMaxLifetime(poolMaxConnLifetime)
	db.SetConnMaxIdleTime(poolMaxConnIdleTime)
}

// OpenStore connects with the configured adapter, using the replica for eventually consistent
// reads when ReplicaURL is set. The returned func closes every pool it opened.
func OpenStore(ctx context.Context, cfg Config, options ...postgresengine.Option) (postgresengine.Store, func(), error) {
	switch cfg.Adapter {
	case AdapterPGXPool:
		return openPGXStore(ctx, cfg, options)
	case AdapterSQLDB:
		return openSQLStore(ctx, cfg, options)
	case AdapterSQLXDB:
		return openSQLXStore(ctx, cfg, options)
	default:
		return postgresengine.Store{}, nil, errors.Join(ErrInvalidConfig, fmt.Errorf("unknown database adapter %q", cfg.Adapter))
	}
}

func openPGXStore(ctx context.Context, cfg Config, options []postgresengine.Option) (postgresengine.Store, func(), error) {
	primary, err := NewPGXPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return postgresengine.Store{}, nil, err
	}

	var replica *pgxpool.Pool
	if cfg.ReplicaURL != "" {
		if replica, err = NewPGXPool(ctx, cfg.ReplicaURL); err != nil {
			primary.Close()
			return postgresengine.Store{}, nil, err
		}
	}

	closeAll := func() {
		primary.Close()
		if replica != nil {
			replica.Close()
		}
	}

	s, err := postgresengine.NewStoreFromPGXPoolWithReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return postgresengine.Store{}, nil, err
	}

	return s, closeAll, nil
}

func openSQLStore(ctx context.Context, cfg Config, options []postgresengine.Option) (postgresengine.Store, func(), error) {
	primary, err := NewSQLDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return postgresengine.Store{}, nil, err
	}

	var replica *sql.DB
	if cfg.ReplicaURL != "" {
		if replica, err = NewSQLDB(ctx, cfg.ReplicaURL); err != nil {
			_ = primary.Close()
			return postgresengine.Store{}, nil, err
		}
	}

	closeAll := func() {
		_ = primary.Close()
		if replica != nil {
			_ = replica.Close()
		}
	}

	s, err := postgresengine.NewStoreFromSQLDBWithReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return postgresengine.Store{}, nil, err
	}

	return s, closeAll, nil
}

func openSQLXStore(ctx context.Context, cfg Config, options []postgresengine.Option) (postgresengine.Store, func(), error) {
	primary, err := NewSQLX(ctx, cfg.DatabaseURL)
	if err != nil {
		return postgresengine.Store{}, nil, err
	}

	var replica *sqlx.DB
	if cfg.ReplicaURL != "" {
		if replica, err = NewSQLX(ctx, cfg.ReplicaURL); err != nil {
			_ = primary.Close()
			return postgresengine.Store{}, nil, err
		}
	}

	closeAll := func() {
		_ = primary.Close()
		if replica != nil {
			_ = replica.Close()
		}
	}

	s, err := postgresengine.NewStoreFromSQLXWithReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return postgresengine.Store{}, nil, err
	}

	return s, closeAll, nil
}
