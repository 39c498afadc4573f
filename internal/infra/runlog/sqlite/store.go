// Package sqlite implements the run ledger on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"protoforge/internal/runlog/core"
)

// Compile-time contract assertion.
var _ core.Recorder = (*Store)(nil)

// Store persists runs to a single SQLite table, one row per generation.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (and if needed creates) the ledger database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "protoforge_runs.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iteration INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		artifact_key TEXT NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		rows_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Record inserts one run row.
func (s *Store) Record(ctx context.Context, run core.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(iteration, source, artifact_key, etag, rows_count, created_at) VALUES(?,?,?,?,?,?)`,
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
