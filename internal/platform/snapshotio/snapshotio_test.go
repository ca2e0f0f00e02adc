package snapshotio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

type payload struct {
	Version int      `json:"version"`
	Items   []string `json:"items"`
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	in := payload{Version: 1, Items: []string{"a", "b"}}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var out payload
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out.Version != 1 || len(out.Items) != 2 || out.Items[1] != "b" {
		t.Fatalf("unexpected round trip result: %+v", out)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	if err := WriteJSON(path, payload{Version: 1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestReadMissingFileReturnsNotExist(t *testing.T) {
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &payload{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestIsConfigured(t *testing.T) {
	if IsConfigured("   ") {
		t.Fatal("blank path should not be configured")
	}
	if !IsConfigured("/tmp/x.json") {
		t.Fatal("non-blank path should be configured")
	}
}
