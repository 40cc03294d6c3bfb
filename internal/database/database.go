// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package database provides data access for engagement, periodicity, user
// and Nielsen report configuration data.
//
// Production runs against Postgres through lib/pq, optionally authenticating
// with RDS IAM tokens. DuckDB serves local development and tests; every query
// is written in the SQL subset both engines accept ($n placeholders,
// make_date, ON CONFLICT).
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"

	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/metrics"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("database: not found")

// Driver names accepted in DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// DB wraps the connection pool.
type DB struct {
	conn         *sql.DB
	driver       string
	queryTimeout time.Duration
}

// Options carries dependencies that do not live in DatabaseConfig.
type Options struct {
	// Credentials sign RDS IAM tokens when cfg.IAMAuth is set.
	Credentials aws.CredentialsProvider
	// Region of the RDS instance for IAM tokens.
	Region string
}

// New opens the pool described by cfg, verifies it with a ping and applies
// the embedded schema where configured.
func New(ctx context.Context, cfg *config.DatabaseConfig, opts Options) (*DB, error) {
	conn, err := open(cfg, opts)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := &DB{conn: conn, driver: cfg.Driver, queryTimeout: cfg.QueryTimeout}
	if db.queryTimeout <= 0 {
		db.queryTimeout = 60 * time.Second
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverDuckDB || cfg.ApplySchema {
		if err := db.applySchema(ctx); err != nil {
			closeQuietly(conn)
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	logging.Info().
		Str("driver", cfg.Driver).
		Bool("iam_auth", cfg.IAMAuth).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connected")
	return db, nil
}

func open(cfg *config.DatabaseConfig, opts Options) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverDuckDB:
		conn, err := sql.Open("duckdb", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open duckdb: %w", err)
		}
		return conn, nil
	case DriverPostgres:
		if cfg.IAMAuth {
			if opts.Credentials == nil {
				return nil, errors.New("RDS IAM auth requires AWS credentials")
			}
			return sql.OpenDB(newIAMConnector(cfg, opts.Region, opts.Credentials)), nil
		}
		conn, err := sql.Open("postgres", cfg.PostgresDSN(cfg.Password))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks connectivity for health probes.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.driver
}

// ensureContext bounds ctx by the query timeout unless it already has a
// deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// query runs a named read query and records its duration and outcome.
// scan is called once per row.
func (db *DB) query(ctx context.Context, name, q string, scan func(*sql.Rows) error, args ...any) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.runQuery(ctx, q, scan, args...)
	metrics.RecordDBQuery(name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s query failed: %w", name, err)
	}
	return nil
}

func (db *DB) runQuery(ctx context.Context, q string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer closeQuietly(rows)

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// exec runs a named statement and returns the affected row count.
func (db *DB) exec(ctx context.Context, name, q string, args ...any) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, q, args...)
	metrics.RecordDBQuery(name, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // some drivers do not report affected rows
	}
	return n, nil
}

// inTx runs fn in a transaction, rolling back when fn fails.
func (db *DB) inTx(ctx context.Context, name string, fn func(*sql.Tx) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.runTx(ctx, fn)
	metrics.RecordDBQuery(name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func (db *DB) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Warn().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}
	return tx.Commit()
}

// closeQuietly closes a resource and explicitly ignores any error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
