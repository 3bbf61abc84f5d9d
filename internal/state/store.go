// store.go persists run states inside a session directory: state.json
// for the active run, runs/ for archived ones. Every write goes through
// write-to-temp-then-rename so a partial file is never observable.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	currentFile = "state.json"
	archiveDir  = "runs"
)

// StateError wraps a corrupt or unreadable state file.
type StateError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("session state %s: %v", e.Path, e.Err)
}

// Unwrap supports errors.Is/As.
func (e *StateError) Unwrap() error { return e.Err }

// Store persists run states for one session directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the given session directory,
// creating it if needed.
func NewStore(sessionDir string) (*Store, error) {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Store{dir: sessionDir}, nil
}

// Dir returns the session directory this store writes into.
func (s *Store) Dir() string { return s.dir }

// SaveCurrent atomically writes rs as the session's active run state.
func (s *Store) SaveCurrent(rs *RunState) error {
	return writeJSONAtomic(filepath.Join(s.dir, currentFile), rs)
}

// LoadCurrent returns the active run state, or nil if none exists.
// Corrupt files surface as a StateError so the caller can decide to
// archive-and-clear.
func (s *Store) LoadCurrent() (*RunState, error) {
	path := filepath.Join(s.dir, currentFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StateError{Path: path, Err: err}
	}

	var rs RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, &StateError{Path: path, Err: err}
	}
	return &rs, nil
}

// ClearCurrent removes the active state file. Idempotent.
func (s *Store) ClearCurrent() error {
	err := os.Remove(filepath.Join(s.dir, currentFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing run state: %w", err)
	}
	return nil
}

// Archive writes rs under runs/ named by its start time and a short
// run-id prefix, and returns the written path.
func (s *Store) Archive(rs *RunState) (string, error) {
	dir := filepath.Join(s.dir, archiveDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	id := rs.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s_%s.json", rs.StartedAt.Format("20060102150405"), id)
	path := filepath.Join(dir, name)

	if err := writeJSONAtomic(path, rs); err != nil {
		return "", err
	}
	return path, nil
}

// ListArchived returns every parseable archived run state, newest first.
// Unparseable files are silently skipped.
func (s *Store) ListArchived() ([]*RunState, error) {
	dir := filepath.Join(s.dir, archiveDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var runs []*RunState
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var rs RunState
		if err := json.Unmarshal(data, &rs); err != nil {
			continue
		}
		runs = append(runs, &rs)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// writeJSONAtomic serializes v and renames it into place.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temporary sibling and renames it over
// path. Used for every persisted file in the session directory.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
