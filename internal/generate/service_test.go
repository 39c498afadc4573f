package generate

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"protoforge/internal/batch"
	"protoforge/internal/blob"
	"protoforge/internal/protocol"
	"protoforge/internal/runlog"
)

const serviceBase = `metadata = {
    'protocolName': 'Base',
}

# ITERATION DATA - WILL BE REPLACED
BO_DATA = {}
run(BO_DATA)
`

var serviceOpts = protocol.Options{
	Label:       "'protocolName': 'Base',",
	LabelFormat: "'protocolName': 'Iteration %d',",
}

func serviceBatch() batch.Batch {
	return batch.Batch{
		ColorA:      []float64{120.5, 85.3},
		ColorB:      []float64{110.8, 135.6},
		ColorC:      []float64{75.2, 88.9},
		DispensePos: []string{"A1", "A2"},
	}
}

func TestGenerate_WritesArtifact(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	ledger := runlog.NewMemory()
	svc := NewService(store, WithRunLog(ledger))

	art, err := svc.Generate(ctx, Request{
		TemplateText: serviceBase,
		Batch:        serviceBatch(),
		Iteration:    2,
		Source:       "data/BO_R2.csv",
		Options:      serviceOpts,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if art.Key != "color_mixing_BO2.py" {
		t.Fatalf("unexpected key %s", art.Key)
	}
	if !art.Relabeled {
		t.Fatalf("expected relabel")
	}

	info, rc, err := store.Get(ctx, art.Key)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != art.Text {
		t.Fatalf("stored artifact differs from returned text")
	}
	if !strings.Contains(string(data), "'protocolName': 'Iteration 2',") {
		t.Fatalf("relabel missing in artifact:\n%s", data)
	}
	if info.ContentType != "text/x-python" {
		t.Fatalf("unexpected content type %s", info.ContentType)
	}

	runs, err := ledger.List(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Iteration != 2 || runs[0].ArtifactKey != art.Key || runs[0].Rows != 2 {
		t.Fatalf("unexpected run record %+v", runs)
	}
}

func TestGenerate_OverwritesSameIteration(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	svc := NewService(store)

	first, err := svc.Generate(ctx, Request{TemplateText: serviceBase, Batch: serviceBatch(), Iteration: 1, Options: serviceOpts})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	smaller := batch.Batch{
		ColorA:      []float64{1.0},
		ColorB:      []float64{2.0},
		ColorC:      []float64{3.0},
		DispensePos: []string{"H12"},
	}
	second, err := svc.Generate(ctx, Request{TemplateText: serviceBase, Batch: smaller, Iteration: 1, Options: serviceOpts})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if first.Key != second.Key {
		t.Fatalf("iteration must map to one destination: %s != %s", first.Key, second.Key)
	}
	infos, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one artifact after regeneration, got %d", len(infos))
	}
	_, rc, err := store.Get(ctx, second.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !strings.Contains(string(data), `DispensePos: ["H12"]`) {
		t.Fatalf("last writer must win:\n%s", data)
	}
}

func TestGenerate_MalformedTemplateWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	ledger := runlog.NewMemory()
	svc := NewService(store, WithRunLog(ledger))

	_, err := svc.Generate(ctx, Request{
		TemplateText: "# ITERATION DATA - WILL BE REPLACED\nBO_DATA = {unclosed\n",
		Batch:        serviceBatch(),
		Iteration:    3,
		Options:      serviceOpts,
	})
	if !errors.Is(err, protocol.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
	infos, _ := store.List(ctx, "")
	if len(infos) != 0 {
		t.Fatalf("no artifact may be written on failure, found %d", len(infos))
	}
	runs, _ := ledger.List(ctx)
	if len(runs) != 0 {
		t.Fatalf("no run may be recorded on failure, found %d", len(runs))
	}
}

func TestGenerate_Observability(t *testing.T) {
	ctx := context.Background()
	rec := NewExpvarMetricsRecorder("")
	tracer := NewJSONTracer(nil)
	svc := NewService(blob.NewMemory(), WithMetrics(rec), WithTracer(tracer))

	if _, err := svc.Generate(ctx, Request{TemplateText: serviceBase, Batch: serviceBatch(), Iteration: 0, Options: serviceOpts}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Generate(ctx, Request{TemplateText: "no marker", Batch: serviceBatch(), Iteration: 1, Options: serviceOpts}); err == nil {
		t.Fatalf("expected failure for marker-less template")
	}

	snap := rec.Snapshot()
	if snap.Results["generate"]["success"] != 1 || snap.Results["generate"]["error"] != 1 {
		t.Fatalf("unexpected metrics %+v", snap.Results)
	}
	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected trace entries %+v", entries)
	}
}

func TestArtifactKey(t *testing.T) {
	if got := ArtifactKey("", "", 4); got != "color_mixing_BO4.py" {
		t.Fatalf("default key wrong: %s", got)
	}
	if got := ArtifactKey("gradient", ".txt", 0); got != "gradient_BO0.txt" {
		t.Fatalf("explicit key wrong: %s", got)
	}
}

func TestReadTemplate_Missing(t *testing.T) {
	if _, err := ReadTemplate("does/not/exist.py"); !errors.Is(err, ErrTemplateRead) {
		t.Fatalf("expected ErrTemplateRead, got %v", err)
	}
}
