package snapshotio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath trims a persisted snapshot path.
func NormalizePath(path string) string {
	return strings.TrimSpace(path)
}

// IsConfigured reports whether snapshot persistence is configured. Stores
// run purely in memory when no path is set, which is how tests operate.
func IsConfigured(path string) bool {
	return strings.TrimSpace(path) != ""
}

// ReadJSON reads and unmarshals a snapshot file.
func ReadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// WriteJSON marshals v and writes it atomically: the payload lands in a
// temporary file in the target directory and is renamed over the snapshot,
// so a crash mid-write never leaves a torn snapshot behind.
func WriteJSON(path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
