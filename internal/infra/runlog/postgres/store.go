// Package postgres implements the run ledger on a PostgreSQL server for
// deployments where several optimization loops share one history.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"protoforge/internal/runlog/core"
)

// Compile-time contract assertion.
var _ core.Recorder = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with the sqlite defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/protoforge?sslmode=disable"
)

// Store persists runs to a PostgreSQL table, one row per generation.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed ledger using the provided DSN (falls back
// to defaultDSN) and ensures the runs table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(defaultDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS runs (
		id BIGSERIAL PRIMARY KEY,
		iteration INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		artifact_key TEXT NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		rows_count INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts one run row.
func (s *Store) Record(ctx context.Context, run core.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(iteration, source, artifact_key, etag, rows_count, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		run.Iteration, run.Source, run.ArtifactKey, run.ETag, run.Rows, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns all runs in recording order.
func (s *Store) List(ctx context.Context) ([]core.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT iteration, source, artifact_key, etag, rows_count, created_at FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []core.Run
	for rows.Next() {
		var r core.Run
		if err := rows.Scan(&r.Iteration, &r.Source, &r.ArtifactKey, &r.ETag, &r.Rows, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
