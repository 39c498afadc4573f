package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FromCSV reads a delimited table with a header row and builds a Batch from
// the four required columns. Row order is preserved exactly; no sorting,
// filtering, or deduplication happens here. Extra columns are ignored.
func FromCSV(r io.Reader) (Batch, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return Batch{}, fmt.Errorf("%w: empty table", ErrSourceRead)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("%w: read header: %v", ErrSourceRead, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range RequiredColumns {
		if _, ok := idx[name]; !ok {
			return Batch{}, fmt.Errorf("%w: %s", ErrSchema, name)
		}
	}

	var b Batch
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Batch{}, fmt.Errorf("%w: row %d: %v", ErrSourceRead, row+1, err)
		}
		a, err := parseColor(record, idx[ColumnColorA], row, ColumnColorA)
		if err != nil {
			return Batch{}, err
		}
		bb, err := parseColor(record, idx[ColumnColorB], row, ColumnColorB)
		if err != nil {
			return Batch{}, err
		}
		c, err := parseColor(record, idx[ColumnColorC], row, ColumnColorC)
		if err != nil {
			return Batch{}, err
		}
		b.ColorA = append(b.ColorA, a)
		b.ColorB = append(b.ColorB, bb)
		b.ColorC = append(b.ColorC, c)
		b.DispensePos = append(b.DispensePos, record[idx[ColumnDispensePos]])
		row++
	}
	return b, nil
}

func parseColor(record []string, col, row int, name string) (float64, error) {
	v, err := strconv.ParseFloat(record[col], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d column %s: %v", ErrSourceRead, row+1, name, err)
	}
	return v, nil
}
