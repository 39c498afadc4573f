// Package blob re-exports core artifact storage abstractions for stable
// imports. Other packages depend on blob.Store, never on the infra-backed
// implementations directly (enforced by an architecture test).
package blob

import (
	"protoforge/internal/blob/core"
)

type (
	// Driver identifies an artifact storage backend driver.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for artifact storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// ErrNotFound indicates a missing key.
var ErrNotFound = core.ErrNotFound
