package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"protoforge/internal/blob/core"
)

func TestStore_PutGetOverwrite(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	info, err := s.Put(ctx, "protocols/color_mixing_BO1.py", bytes.NewReader([]byte("first")), core.PutOptions{ContentType: "text/x-python"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %#v", info)
	}

	info2, err := s.Put(ctx, "protocols/color_mixing_BO1.py", bytes.NewReader([]byte("second!")), core.PutOptions{})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if info2.Size != 7 {
		t.Fatalf("overwrite size %d", info2.Size)
	}

	_, rc, err := s.Get(ctx, "protocols/color_mixing_BO1.py")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "second!" {
		t.Fatalf("last writer must win, got %q", b)
	}

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(root, "protocols"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if len(e.Name()) > 4 && e.Name()[:5] == ".tmp-" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_GetMissing(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "nope.py"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(context.Background(), "nope.py"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"color_mixing_BO0.py", "color_mixing_BO1.py", "other.txt"} {
		if _, err := s.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "color_mixing_")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "color_mixing_BO0.py" || infos[1].Key != "color_mixing_BO1.py" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	ok, err := s.Delete(ctx, "other.txt")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "other.txt")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestSanitizeKey(t *testing.T) {
	bad := []string{"", "  ", "../escape.py", "/abs.py", "a/../../b"}
	for _, key := range bad {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	if k, err := sanitizeKey("dir/file.py"); err != nil || k != "dir/file.py" {
		t.Fatalf("good key rejected: %v", err)
	}
}

func TestStore_PresignLocalURL(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	u, err := s.PresignURL(context.Background(), "a.py", core.SignedURLOptions{})
	if err != nil || u == "" {
		t.Fatalf("presign: %v %q", err, u)
	}
	if _, err := s.PresignURL(context.Background(), "a.py", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for PUT")
	}
}
