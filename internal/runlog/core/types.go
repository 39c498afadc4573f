// Package core defines the ledger abstractions shared by the runlog drivers.
package core

import (
	"context"
	"time"
)

// Run is one recorded generation: which iteration produced which artifact,
// from which source table, and when.
type Run struct {
	Iteration   int       `json:"iteration"`
	Source      string    `json:"source,omitempty"`
	ArtifactKey string    `json:"artifact_key"`
	ETag        string    `json:"etag,omitempty"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder records and lists generation runs. List returns runs in recording
// order.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	List(ctx context.Context) ([]Run, error)
	Close() error
}
