// Package suggest produces simulated optimizer suggestions for demo loops
// and tests. It samples uniformly; it is not an optimizer.
package suggest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"

	"protoforge/internal/batch"
)

// wellRows and wellColumns describe the 96-well plate addressed by the
// dispense positions.
const (
	wellRows    = 8  // A..H
	wellColumns = 12 // 1..12
)

// Sampler draws experiment batches from a seeded source so demo runs are
// reproducible.
type Sampler struct {
	rng *rand.Rand
}

// New returns a sampler seeded deterministically.
func New(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Batch samples n experiments: color components in [0,255] with one decimal
// of precision, dispense positions walking the plate row-major from A1.
func (s *Sampler) Batch(n int) batch.Batch {
	b := batch.Batch{
		ColorA:      make([]float64, 0, n),
		ColorB:      make([]float64, 0, n),
		ColorC:      make([]float64, 0, n),
		DispensePos: make([]string, 0, n),
	}
	for i := 0; i < n; i++ {
		b.ColorA = append(b.ColorA, s.component())
		b.ColorB = append(b.ColorB, s.component())
		b.ColorC = append(b.ColorC, s.component())
		b.DispensePos = append(b.DispensePos, WellLabel(i))
	}
	return b
}

func (s *Sampler) component() float64 {
	return math.Round(s.rng.Float64()*2550) / 10
}

// WellLabel maps a zero-based experiment index to a plate position, row-major
// from A1. Indexes beyond one plate wrap around.
func WellLabel(i int) string {
	i %= wellRows * wellColumns
	return fmt.Sprintf("%c%d", 'A'+i/wellColumns, 1+i%wellColumns)
}

// MarshalCSV renders a batch as the delimited table the normalizer reads,
// header row included.
func MarshalCSV(b batch.Batch) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(batch.RequiredColumns); err != nil {
		return nil, err
	}
	for i := 0; i < b.Len(); i++ {
		record := []string{
			fmt.Sprintf("%g", b.ColorA[i]),
			fmt.Sprintf("%g", b.ColorB[i]),
			fmt.Sprintf("%g", b.ColorC[i]),
			b.DispensePos[i],
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
