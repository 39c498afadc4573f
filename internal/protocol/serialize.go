package protocol

import (
	"strconv"
	"strings"

	"protoforge/internal/batch"
)

// Serialize renders a batch as the mapping literal the control script embeds.
// It is a pure function of the batch: identical batches serialize to
// byte-identical text, with the four keys always in the fixed order
// colorA, colorB, colorC, DispensePos.
func Serialize(b batch.Batch) string {
	var sb strings.Builder
	sb.Grow(32 + 24*b.Len())
	sb.WriteByte('{')
	sb.WriteString(batch.ColumnColorA)
	sb.WriteString(": ")
	writeColors(&sb, b.ColorA)
	sb.WriteString(", ")
	sb.WriteString(batch.ColumnColorB)
	sb.WriteString(": ")
	writeColors(&sb, b.ColorB)
	sb.WriteString(", ")
	sb.WriteString(batch.ColumnColorC)
	sb.WriteString(": ")
	writeColors(&sb, b.ColorC)
	sb.WriteString(", ")
	sb.WriteString(batch.ColumnDispensePos)
	sb.WriteString(": ")
	writePositions(&sb, b.DispensePos)
	sb.WriteByte('}')
	return sb.String()
}

func writeColors(sb *strings.Builder, values []float64) {
	sb.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatColor(v))
	}
	sb.WriteByte(']')
}

func writePositions(sb *strings.Builder, values []string) {
	sb.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(v))
	}
	sb.WriteByte(']')
}

// FormatColor renders a color component as a decimal number that always
// carries a fractional part, so integral values round-trip as floats in the
// generated script (1 -> "1.0").
func FormatColor(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
