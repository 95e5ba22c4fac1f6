// Package snapshot reads and writes whole-file JSON snapshots.
//
// Writes go to a temporary file in the destination directory which is then
// renamed over the target, so a reader sees either the previous snapshot or
// the new one, never a partial file.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotExists is returned by Load when the snapshot file is missing or empty.
var ErrNotExists = errors.New("snapshot does not exist")

// Save marshals v and atomically replaces path with the result.
func Save(path string, v any) error {
	return SavePerm(path, v, 0o644)
}

// SavePerm is Save with explicit file permissions.
func SavePerm(path string, v any, perm os.FileMode) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteAtomic(path, data, perm)
}

// Load decodes the snapshot at path into v.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExists
		}
		return err
	}
	if len(data) == 0 {
		return ErrNotExists
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteAtomic writes data to path through a temp file and rename.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// No-op once the rename succeeded.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
