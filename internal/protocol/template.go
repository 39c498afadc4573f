// Package protocol patches the mutable data region of a liquid-handler
// control script. The base script is parsed once into a small structure
// (prefix, marker line, assignment lead, brace-balanced literal span, suffix)
// so rendering is pure string assembly: identical inputs always produce
// identical output and every byte outside the region survives untouched.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"protoforge/internal/batch"
)

// Defaults match the shipped color_mixing template. Callers with a different
// base script pass their own Options.
const (
	DefaultMarker      = "# ITERATION DATA - WILL BE REPLACED"
	DefaultLabel       = "'protocolName': 'Color Liquid Mixing - Bayesian Optimization',"
	DefaultLabelFormat = "'protocolName': 'Color Liquid Mixing - BO Iteration %d',"
)

// patchedMarkerPrefix is what a rendered marker comment starts with; Extract
// relies on it to re-locate the region in an already-patched script.
const patchedMarkerPrefix = "# ITERATION DATA - BO"

var (
	// ErrMarkerNotFound indicates the base script contains no data marker, or
	// the marker is not followed by a brace-delimited assignment.
	ErrMarkerNotFound = errors.New("protocol: data marker not found")
	// ErrUnbalanced indicates the data literal's braces never close.
	ErrUnbalanced = errors.New("protocol: unbalanced braces in data literal")
	// ErrAmbiguousMarker indicates more than one candidate data region.
	// Ambiguity is an explicit error rather than first-match-wins.
	ErrAmbiguousMarker = errors.New("protocol: multiple data markers")
)

// Options identifies the mutable region and the descriptive label of a base
// script. Zero values fall back to the defaults above.
type Options struct {
	Marker      string // substring of the comment line announcing the region
	Label       string // exact label literal replaced per iteration
	LabelFormat string // label replacement, one %d verb for the iteration
}

func (o Options) withDefaults() Options {
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.Label == "" {
		o.Label = DefaultLabel
	}
	if o.LabelFormat == "" {
		o.LabelFormat = DefaultLabelFormat
	}
	return o
}

// Template is a base script parsed around its single mutable data region.
// It is immutable; Render derives new text without touching the original.
type Template struct {
	prefix     string // everything before the marker line
	markerLine string // the marker comment line, without trailing newline
	lead       string // from end of marker line up to the opening brace
	suffix     string // everything after the closing brace
	opts       Options
}

// Parse locates the mutable data region of text: a comment line containing
// the marker, followed by an assignment whose value is a brace-delimited
// literal. The region end is found by quote-aware brace counting, never by a
// fixed line count, so nested braces inside data values cannot truncate it.
func Parse(text string, opts Options) (*Template, error) {
	opts = opts.withDefaults()

	markerIdx := strings.Index(text, opts.Marker)
	if markerIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMarkerNotFound, opts.Marker)
	}
	lineStart := strings.LastIndexByte(text[:markerIdx], '\n') + 1
	lineEnd := strings.IndexByte(text[markerIdx:], '\n')
	if lineEnd < 0 {
		return nil, fmt.Errorf("%w: no assignment after marker", ErrMarkerNotFound)
	}
	lineEnd += markerIdx

	// The assignment must open its literal on the line following the marker.
	nextLineEnd := strings.IndexByte(text[lineEnd+1:], '\n')
	if nextLineEnd < 0 {
		nextLineEnd = len(text)
	} else {
		nextLineEnd += lineEnd + 1
	}
	braceIdx := strings.IndexByte(text[lineEnd:nextLineEnd], '{')
	if braceIdx < 0 {
		return nil, fmt.Errorf("%w: no assignment after marker", ErrMarkerNotFound)
	}
	braceIdx += lineEnd

	end, err := braceSpanEnd(text, braceIdx)
	if err != nil {
		return nil, err
	}
	if strings.Contains(text[end:], opts.Marker) {
		return nil, ErrAmbiguousMarker
	}

	return &Template{
		prefix:     text[:lineStart],
		markerLine: text[lineStart:lineEnd],
		lead:       text[lineEnd:braceIdx],
		suffix:     text[end:],
		opts:       opts,
	}, nil
}

// braceSpanEnd returns the index one past the brace that balances the opening
// brace at start. Braces inside single- or double-quoted strings are ignored.
func braceSpanEnd(text string, start int) (int, error) {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		case '\'', '"':
			quote := text[i]
			j := i + 1
			for j < len(text) {
				if text[j] == '\\' {
					j += 2
					continue
				}
				if text[j] == quote {
					break
				}
				j++
			}
			if j >= len(text) {
				return 0, fmt.Errorf("%w: unterminated string in literal", ErrUnbalanced)
			}
			i = j
		}
	}
	return 0, ErrUnbalanced
}

// Render produces the patched script text for one iteration. The marker
// comment is rewritten to carry the iteration identifier, the literal span is
// replaced by the serialized batch, and the descriptive label is substituted
// once. The returned flag reports whether the label substitution happened;
// a missing label is non-fatal because it only affects the display name.
func (t *Template) Render(b batch.Batch, iteration int) (string, bool, error) {
	if err := b.Validate(); err != nil {
		return "", false, err
	}
	marker := strings.Replace(t.markerLine, t.opts.Marker,
		fmt.Sprintf("%s%d", patchedMarkerPrefix, iteration), 1)

	var sb strings.Builder
	sb.Grow(len(t.prefix) + len(marker) + len(t.lead) + len(t.suffix) + 64*b.Len())
	sb.WriteString(t.prefix)
	sb.WriteString(marker)
	sb.WriteString(t.lead)
	sb.WriteString(Serialize(b))
	sb.WriteString(t.suffix)

	text := sb.String()
	newLabel := fmt.Sprintf(t.opts.LabelFormat, iteration)
	relabeled := strings.Contains(text, t.opts.Label)
	if relabeled {
		text = strings.Replace(text, t.opts.Label, newLabel, 1)
	}
	return text, relabeled, nil
}

// Patch is the one-shot form of Parse followed by Render.
func Patch(text string, b batch.Batch, iteration int, opts Options) (string, bool, error) {
	t, err := Parse(text, opts)
	if err != nil {
		return "", false, err
	}
	return t.Render(b, iteration)
}
