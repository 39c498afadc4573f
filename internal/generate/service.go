// Package generate orchestrates one protocol generation call: normalize the
// batch, patch the base template, persist the artifact. Template content and
// destination naming are explicit inputs; the package resolves nothing from
// process-global state.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"protoforge/internal/batch"
	"protoforge/internal/blob"
	"protoforge/internal/protocol"
	"protoforge/internal/runlog"
)

// ErrTemplateRead indicates the base template could not be read from storage.
var ErrTemplateRead = errors.New("generate: base template unreadable")

// Request carries everything one generation call needs. TemplateText is the
// full base script content, already read by the caller.
type Request struct {
	TemplateText string
	Batch        batch.Batch
	Iteration    int
	BaseName     string // artifact name stem, default "color_mixing"
	Ext          string // artifact extension, default ".py"
	Source       string // provenance note for the run ledger, optional
	Options      protocol.Options
}

// Artifact describes one successfully generated protocol script.
type Artifact struct {
	Key       string
	Text      string
	Info      blob.Info
	Relabeled bool
}

// Service wires the normalizer and patcher to an artifact store. The run
// ledger, metrics recorder, and tracer are optional; a nil field disables
// that concern.
type Service struct {
	store   blob.Store
	runs    runlog.Store
	metrics MetricsRecorder
	tracer  Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithRunLog records each successful generation in the given ledger.
func WithRunLog(store runlog.Store) Option {
	return func(s *Service) { s.runs = store }
}

// WithMetrics observes generation outcomes on the given recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer emits one span per generation call.
func WithTracer(tr Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

// NewService constructs a generation service writing artifacts to store.
func NewService(store blob.Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ArtifactKey returns the destination key for an iteration:
// {baseName}_BO{iteration}{ext}. Each iteration maps to exactly one key;
// regenerating replaces the prior artifact.
func ArtifactKey(baseName, ext string, iteration int) string {
	if baseName == "" {
		baseName = "color_mixing"
	}
	if ext == "" {
		ext = ".py"
	}
	return fmt.Sprintf("%s_BO%d%s", baseName, iteration, ext)
}

// Generate patches the base template with the request batch and writes the
// artifact. The patch happens fully in memory; on any error the destination
// is left untouched.
func (s *Service) Generate(ctx context.Context, req Request) (Artifact, error) {
	start := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "generate")
	}
	art, err := s.generate(ctx, req)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, "generate", err == nil, time.Since(start))
	}
	return art, err
}

func (s *Service) generate(ctx context.Context, req Request) (Artifact, error) {
	text, relabeled, err := protocol.Patch(req.TemplateText, req.Batch, req.Iteration, req.Options)
	if err != nil {
		return Artifact{}, err
	}
	key := ArtifactKey(req.BaseName, req.Ext, req.Iteration)
	info, err := s.store.Put(ctx, key, strings.NewReader(text), blob.PutOptions{
		ContentType: "text/x-python",
		Metadata:    map[string]string{"iteration": fmt.Sprintf("%d", req.Iteration)},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("write artifact %s: %w", key, err)
	}
	art := Artifact{Key: key, Text: text, Info: info, Relabeled: relabeled}
	if s.runs != nil {
		run := runlog.Run{
			Iteration:   req.Iteration,
			Source:      req.Source,
			ArtifactKey: key,
			ETag:        info.ETag,
			Rows:        req.Batch.Len(),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.runs.Record(ctx, run); err != nil {
			return art, fmt.Errorf("record run: %w", err)
		}
	}
	return art, nil
}

// ReadTemplate loads a base template from disk for the CLI. Kept out of the
// core patch path so the patcher itself never touches the filesystem.
func ReadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRead, err)
	}
	return string(data), nil
}
