// Package runlog keeps an optional ledger of generation runs. The generation
// core never requires it; the default driver is in-memory so a durable
// ledger is an explicit deployment choice.
package runlog

import (
	"fmt"
	"os"
	"time"

	rlcore "protoforge/internal/runlog/core"

	"protoforge/internal/infra/runlog/memory"
	"protoforge/internal/infra/runlog/postgres"
	"protoforge/internal/infra/runlog/sqlite"
)

// Driver identifies a concrete ledger implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (default)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

type (
	// Run is one recorded generation.
	Run = rlcore.Run
	// Store records and lists generation runs.
	Store = rlcore.Recorder
)

// NewMemory returns the in-memory ledger used by tests and the default
// configuration.
func NewMemory() Store { return memory.NewStore() }

// Open selects a ledger backend using environment variables.
//
//	PROTOFORGE_RUNLOG_DRIVER: memory|sqlite|postgres (default memory)
//	PROTOFORGE_RUNLOG_SQLITE_PATH: sqlite file path (default ./protoforge_runs.db)
//	PROTOFORGE_RUNLOG_POSTGRES_DSN: postgres DSN when driver=postgres
func Open() (Store, error) {
	driver := os.Getenv("PROTOFORGE_RUNLOG_DRIVER")
	if driver == "" {
		driver = string(DriverMemory)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		path := os.Getenv("PROTOFORGE_RUNLOG_SQLITE_PATH")
		return sqlite.NewStore(path)
	case DriverPostgres:
		dsn := os.Getenv("PROTOFORGE_RUNLOG_POSTGRES_DSN")
		return postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown runlog driver %s", driver)
	}
}

// Summarize renders a one-line human summary of a run for CLI output.
func Summarize(r Run) string {
	return fmt.Sprintf("BO%d: %s (%d experiments, recorded %s)",
		r.Iteration, r.ArtifactKey, r.Rows, r.CreatedAt.Format(time.RFC3339))
}
