// Package batch normalizes tabular optimizer suggestions into the canonical
// per-iteration experiment batch consumed by the protocol patcher.
package batch

import (
	"errors"
	"fmt"
)

// Required column names, case-sensitive. The table schema is fixed by the
// optimization loop that produces it; columns are never inferred.
const (
	ColumnColorA      = "colorA"
	ColumnColorB      = "colorB"
	ColumnColorC      = "colorC"
	ColumnDispensePos = "DispensePos"
)

// RequiredColumns lists the table columns a source must expose, in the order
// they appear in the serialized data literal.
var RequiredColumns = []string{ColumnColorA, ColumnColorB, ColumnColorC, ColumnDispensePos}

var (
	// ErrSourceRead indicates the tabular source could not be read or parsed.
	ErrSourceRead = errors.New("batch: source unreadable")
	// ErrSchema indicates a required column is absent from the source.
	ErrSchema = errors.New("batch: required column missing")
)

// Batch is one iteration's worth of proposed experiments: four parallel
// sequences where index i across all four describes the same experiment.
// Constructed once per generation call and immutable by convention thereafter.
type Batch struct {
	ColorA      []float64
	ColorB      []float64
	ColorC      []float64
	DispensePos []string
}

// Len returns the number of experiments in the batch.
func (b Batch) Len() int { return len(b.ColorA) }

// Validate checks the parallel-sequence invariant. A zero-length batch is
// valid; it serializes to four empty sequences.
func (b Batch) Validate() error {
	n := len(b.ColorA)
	if len(b.ColorB) != n || len(b.ColorC) != n || len(b.DispensePos) != n {
		return fmt.Errorf("batch: sequence lengths differ: colorA=%d colorB=%d colorC=%d DispensePos=%d",
			len(b.ColorA), len(b.ColorB), len(b.ColorC), len(b.DispensePos))
	}
	return nil
}

// Equal reports whether two batches hold identical sequences in identical order.
func (b Batch) Equal(other Batch) bool {
	if b.Len() != other.Len() {
		return false
	}
	for i := range b.ColorA {
		if b.ColorA[i] != other.ColorA[i] || b.ColorB[i] != other.ColorB[i] || b.ColorC[i] != other.ColorC[i] || b.DispensePos[i] != other.DispensePos[i] {
			return false
		}
	}
	return true
}
