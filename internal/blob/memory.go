package blob

import (
	"protoforge/internal/infra/blob/memory"
)

// NewMemory constructs an in-memory blob.Store for tests and ephemeral runs.
func NewMemory() Store {
	return memory.New()
}
