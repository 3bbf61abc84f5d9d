package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	rs := NewRunState(MachinePickingStory)
	rs.Branch = "feature/x"
	if err := store.SaveCurrent(rs); err != nil {
		t.Fatalf("SaveCurrent() error: %v", err)
	}

	loaded, err := store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent() error: %v", err)
	}
	if loaded == nil {
		t.Fatalf("LoadCurrent() = nil, want state")
	}
	if loaded.RunID != rs.RunID || loaded.Branch != "feature/x" {
		t.Errorf("loaded state = %+v, want run %s on feature/x", loaded, rs.RunID)
	}
}

func TestLoadCurrentAbsent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	rs, err := store.LoadCurrent()
	if err != nil {
		t.Errorf("LoadCurrent() error = %v, want nil", err)
	}
	if rs != nil {
		t.Errorf("LoadCurrent() = %+v, want nil", rs)
	}
}

func TestLoadCurrentCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	_, err = store.LoadCurrent()
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error type = %T, want *StateError", err)
	}
	if stateErr.Path == "" {
		t.Errorf("StateError.Path is empty")
	}
}

func TestClearCurrentIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := store.SaveCurrent(NewRunState(MachineIdle)); err != nil {
		t.Fatalf("SaveCurrent() error: %v", err)
	}
	if err := store.ClearCurrent(); err != nil {
		t.Errorf("first ClearCurrent() error: %v", err)
	}
	if err := store.ClearCurrent(); err != nil {
		t.Errorf("second ClearCurrent() error: %v", err)
	}
}

func TestArchiveNaming(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	rs := NewRunState(MachineCompleted)
	rs.RunID = "abcdef12-3456-7890-abcd-ef1234567890"
	rs.StartedAt = time.Date(2026, 8, 28, 14, 30, 5, 0, time.UTC)

	path, err := store.Archive(rs)
	if err != nil {
		t.Fatalf("Archive() error: %v", err)
	}
	want := "20260828143005_abcdef12.json"
	if filepath.Base(path) != want {
		t.Errorf("archive name = %q, want %q", filepath.Base(path), want)
	}
	if !strings.Contains(path, string(filepath.Separator)+"runs"+string(filepath.Separator)) {
		t.Errorf("archive path %q not under runs/", path)
	}
}

func TestListArchivedOrderAndSkip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	old := NewRunState(MachineCompleted)
	old.StartedAt = time.Now().Add(-time.Hour).UTC()
	recent := NewRunState(MachineCompleted)

	if _, err := store.Archive(old); err != nil {
		t.Fatalf("Archive(old) error: %v", err)
	}
	if _, err := store.Archive(recent); err != nil {
		t.Fatalf("Archive(recent) error: %v", err)
	}
	// A broken file is skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "runs", "broken.json"), []byte("nope"), 0644); err != nil {
		t.Fatalf("writing broken archive: %v", err)
	}

	runs, err := store.ListArchived()
	if err != nil {
		t.Fatalf("ListArchived() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListArchived() count = %d, want 2", len(runs))
	}
	if runs[0].RunID != recent.RunID {
		t.Errorf("ListArchived()[0] = %s, want newest run %s", runs[0].RunID, recent.RunID)
	}
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := WriteFileAtomic(path, []byte(`{"ok": true}`)); err != nil {
		t.Fatalf("WriteFileAtomic() error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
