package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"protoforge/internal/runlog/core"
)

func TestStore_RecordAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	want := []core.Run{
		{Iteration: 0, Source: "data/BO_R0.csv", ArtifactKey: "color_mixing_BO0.py", ETag: "e0", Rows: 4, CreatedAt: now},
		{Iteration: 1, Source: "data/BO_R1.csv", ArtifactKey: "color_mixing_BO1.py", ETag: "e1", Rows: 8, CreatedAt: now.Add(time.Minute)},
	}
	for _, r := range want {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Iteration != want[i].Iteration || got[i].ArtifactKey != want[i].ArtifactKey ||
			got[i].ETag != want[i].ETag || got[i].Rows != want[i].Rows || got[i].Source != want[i].Source {
			t.Fatalf("row %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
	if s.Path() != path {
		t.Fatalf("path accessor: %s", s.Path())
	}
}

func TestStore_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Record(ctx, core.Run{Iteration: 5, ArtifactKey: "color_mixing_BO5.py", Rows: 2, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	runs, err := s2.List(ctx)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(runs) != 1 || runs[0].Iteration != 5 {
		t.Fatalf("ledger not durable across reopen: %+v", runs)
	}
}
