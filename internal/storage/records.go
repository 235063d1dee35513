package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Record file names inside the local data directory.
const (
	GroupsRecord    = "groups.json"
	BookmarksRecord = "bookmarks.json"
	JournalRecord   = "migration.json"
)

// Records reads and writes named JSON records in one directory.
type Records struct {
	dir string
}

// NewRecords creates a Records rooted at dir.
func NewRecords(dir string) *Records {
	return &Records{dir: dir}
}

// Dir returns the records directory.
func (r *Records) Dir() string {
	return r.dir
}

func (r *Records) path(name string) string {
	return filepath.Join(r.dir, name)
}

// Load decodes record name into v. It reports false if the record is missing.
func (r *Records) Load(name string, v any) (bool, error) {
	data, err := os.ReadFile(r.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Exists reports whether record name is present.
func (r *Records) Exists(name string) bool {
	_, err := os.Stat(r.path(name))
	return err == nil
}

// Save writes v to record name. The file is replaced atomically.
func (r *Records) Save(name string, v any) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+name+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, r.path(name))
}

// Remove deletes the named records. Missing records are ignored.
func (r *Records) Remove(names ...string) error {
	var errs []error
	for _, name := range names {
		if err := os.Remove(r.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
