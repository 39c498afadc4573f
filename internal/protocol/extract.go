package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"protoforge/internal/batch"
)

// ErrLiteral indicates the embedded data literal does not match the shape
// Serialize produces.
var ErrLiteral = errors.New("protocol: malformed data literal")

// Extract re-reads the embedded data literal from a base or already-patched
// script and rebuilds the batch it encodes. It is the inverse of patching for
// the data contract and backs the round-trip verification in the CLI.
func Extract(text string, opts Options) (batch.Batch, error) {
	opts = opts.withDefaults()

	markerIdx := strings.Index(text, opts.Marker)
	if markerIdx < 0 {
		markerIdx = strings.Index(text, patchedMarkerPrefix)
	}
	if markerIdx < 0 {
		return batch.Batch{}, fmt.Errorf("%w: %q", ErrMarkerNotFound, opts.Marker)
	}
	braceIdx := strings.IndexByte(text[markerIdx:], '{')
	if braceIdx < 0 {
		return batch.Batch{}, fmt.Errorf("%w: no literal after marker", ErrMarkerNotFound)
	}
	braceIdx += markerIdx
	end, err := braceSpanEnd(text, braceIdx)
	if err != nil {
		return batch.Batch{}, err
	}
	return parseLiteral(text[braceIdx:end])
}

// parseLiteral reads a mapping literal of the form
// {key: [items], key: [items], ...} where items are decimal numbers or
// quoted strings. Key order is not enforced, but all four required columns
// must be present.
func parseLiteral(lit string) (batch.Batch, error) {
	p := &literalParser{src: lit}
	seqs := make(map[string][]string)
	if err := p.expect('{'); err != nil {
		return batch.Batch{}, err
	}
	p.skipSpace()
	for !p.peekIs('}') {
		key, err := p.ident()
		if err != nil {
			return batch.Batch{}, err
		}
		if err := p.expect(':'); err != nil {
			return batch.Batch{}, err
		}
		items, err := p.sequence()
		if err != nil {
			return batch.Batch{}, err
		}
		seqs[key] = items
		p.skipSpace()
		if p.peekIs(',') {
			p.pos++
			p.skipSpace()
		}
	}

	var b batch.Batch
	for _, name := range batch.RequiredColumns {
		items, ok := seqs[name]
		if !ok {
			return batch.Batch{}, fmt.Errorf("%w: key %s missing", ErrLiteral, name)
		}
		for _, item := range items {
			if name == batch.ColumnDispensePos {
				pos, err := strconv.Unquote(item)
				if err != nil {
					return batch.Batch{}, fmt.Errorf("%w: position %s: %v", ErrLiteral, item, err)
				}
				b.DispensePos = append(b.DispensePos, pos)
				continue
			}
			v, err := strconv.ParseFloat(item, 64)
			if err != nil {
				return batch.Batch{}, fmt.Errorf("%w: number %s: %v", ErrLiteral, item, err)
			}
			switch name {
			case batch.ColumnColorA:
				b.ColorA = append(b.ColorA, v)
			case batch.ColumnColorB:
				b.ColorB = append(b.ColorB, v)
			case batch.ColumnColorC:
				b.ColorC = append(b.ColorC, v)
			}
		}
	}
	if err := b.Validate(); err != nil {
		return batch.Batch{}, err
	}
	return b, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peekIs(c byte) bool {
	return p.pos < len(p.src) && p.src[p.pos] == c
}

func (p *literalParser) expect(c byte) error {
	p.skipSpace()
	if !p.peekIs(c) {
		return fmt.Errorf("%w: expected %q at offset %d", ErrLiteral, string(c), p.pos)
	}
	p.pos++
	return nil
}

func (p *literalParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ':' || c == ' ' || c == '\t' || c == '\n' {
			break
		}
		p.pos++
	}
	// keys may be quoted in hand-edited templates
	key := strings.Trim(p.src[start:p.pos], "'\"")
	if key == "" {
		return "", fmt.Errorf("%w: empty key at offset %d", ErrLiteral, start)
	}
	return key, nil
}

// sequence reads a bracketed list and returns the raw item tokens.
func (p *literalParser) sequence() ([]string, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	items := []string{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("%w: unterminated sequence", ErrLiteral)
		}
		if p.peekIs(']') {
			p.pos++
			return items, nil
		}
		if p.peekIs(',') {
			p.pos++
			continue
		}
		if p.peekIs('"') || p.peekIs('\'') {
			tok, err := p.quoted()
			if err != nil {
				return nil, err
			}
			items = append(items, tok)
			continue
		}
		start := p.pos
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if c == ',' || c == ']' || c == ' ' || c == '\n' {
				break
			}
			p.pos++
		}
		items = append(items, p.src[start:p.pos])
	}
}

func (p *literalParser) quoted() (string, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		if p.src[p.pos] == '\\' {
			p.pos += 2
			continue
		}
		if p.src[p.pos] == quote {
			p.pos++
			tok := p.src[start:p.pos]
			if quote == '\'' {
				// normalize to double quotes for strconv.Unquote
				tok = "\"" + strings.ReplaceAll(tok[1:len(tok)-1], "\\'", "'") + "\""
			}
			return tok, nil
		}
		p.pos++
	}
	return "", fmt.Errorf("%w: unterminated string", ErrLiteral)
}
