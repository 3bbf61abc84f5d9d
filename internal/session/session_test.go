package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/git"
	"github.com/louisboilard/autom8/internal/state"
	"github.com/louisboilard/autom8/internal/testutil"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if !strings.HasPrefix(id, "s-") {
		t.Errorf("NewSessionID() = %q, want s- prefix", id)
	}
	if id == NewSessionID() {
		t.Errorf("NewSessionID() produced a duplicate")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := &Metadata{
		SessionID:    "s-test",
		WorktreePath: "/tmp/wt",
		BranchName:   "feature/x",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := SaveMetadata(dir, meta); err != nil {
		t.Fatalf("SaveMetadata() error: %v", err)
	}

	loaded, err := LoadMetadata(dir)
	if err != nil {
		t.Fatalf("LoadMetadata() error: %v", err)
	}
	if loaded.SessionID != "s-test" || loaded.BranchName != "feature/x" {
		t.Errorf("loaded metadata = %+v", loaded)
	}
}

func TestLoadMetadataAbsent(t *testing.T) {
	meta, err := LoadMetadata(t.TempDir())
	if err != nil {
		t.Errorf("LoadMetadata() error = %v, want nil", err)
	}
	if meta != nil {
		t.Errorf("LoadMetadata() = %+v, want nil", meta)
	}
}

// seedSession creates a session directory under the config root with
// metadata and optionally a run state.
func seedSession(t *testing.T, project, id, worktree string, rs *state.RunState) {
	t.Helper()
	dir, err := config.SessionDir(project, id)
	if err != nil {
		t.Fatalf("SessionDir: %v", err)
	}
	meta := &Metadata{SessionID: id, WorktreePath: worktree, BranchName: "feature/" + id}
	if err := SaveMetadata(dir, meta); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	if rs != nil {
		store, err := state.NewStore(dir)
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		if err := store.SaveCurrent(rs); err != nil {
			t.Fatalf("SaveCurrent: %v", err)
		}
	}
}

func TestRegistryClassification(t *testing.T) {
	t.Setenv(config.RootEnv, t.TempDir())
	const project = "proj"

	staleWT := filepath.Join(t.TempDir(), "gone")
	liveWT := t.TempDir()
	currentWT := t.TempDir()

	running := state.NewRunState(state.MachineRunningClaude)
	done := state.NewRunState(state.MachineCompleted)
	done.Complete()

	seedSession(t, project, "s-stale", staleWT, running)
	seedSession(t, project, "s-resume", liveWT, running)
	seedSession(t, project, "s-idle", t.TempDir(), done)
	seedSession(t, project, "s-cur", currentWT, nil)

	// The spec directory must never appear as a session.
	specDir, _ := config.SpecDir(project)
	if err := os.MkdirAll(specDir, 0755); err != nil {
		t.Fatalf("mkdir spec: %v", err)
	}

	reg := &Registry{Project: project, CWD: currentWT}
	infos, err := reg.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	classes := map[string]Class{}
	for _, info := range infos {
		classes[info.Metadata.SessionID] = info.Class
	}
	if len(classes) != 4 {
		t.Fatalf("List() found %d sessions, want 4: %v", len(classes), classes)
	}
	if classes["s-stale"] != ClassStale {
		t.Errorf("s-stale class = %v, want stale", classes["s-stale"])
	}
	if classes["s-resume"] != ClassResumable {
		t.Errorf("s-resume class = %v, want resumable", classes["s-resume"])
	}
	if classes["s-idle"] != ClassIdle {
		t.Errorf("s-idle class = %v, want idle", classes["s-idle"])
	}
	if classes["s-cur"] != ClassCurrent {
		t.Errorf("s-cur class = %v, want current", classes["s-cur"])
	}

	// Stale sessions never count as resumable.
	resumable, err := reg.Resumable()
	if err != nil {
		t.Fatalf("Resumable() error: %v", err)
	}
	for _, info := range resumable {
		if info.Metadata.SessionID == "s-stale" {
			t.Errorf("stale session listed as resumable")
		}
	}
	if len(resumable) != 1 || resumable[0].Metadata.SessionID != "s-resume" {
		t.Errorf("Resumable() = %v, want only s-resume", resumable)
	}
}

func TestResolveResumeSingle(t *testing.T) {
	t.Setenv(config.RootEnv, t.TempDir())
	const project = "proj"

	running := state.NewRunState(state.MachineReviewing)
	seedSession(t, project, "s-one", t.TempDir(), running)

	reg := &Registry{Project: project, CWD: t.TempDir()}
	info, err := ResolveResume(reg)
	if err != nil {
		t.Fatalf("ResolveResume() error: %v", err)
	}
	if info.Metadata.SessionID != "s-one" {
		t.Errorf("ResolveResume() = %s, want s-one", info.Metadata.SessionID)
	}
}

func TestResolveResumeNone(t *testing.T) {
	t.Setenv(config.RootEnv, t.TempDir())
	reg := &Registry{Project: "empty", CWD: t.TempDir()}
	_, err := ResolveResume(reg)
	if err != ErrNoResumable {
		t.Errorf("ResolveResume() error = %v, want ErrNoResumable", err)
	}
}

func TestCreateConflictAndDestroy(t *testing.T) {
	t.Setenv(config.RootEnv, t.TempDir())
	repo := testutil.GitRepo(t)
	reg := &Registry{Project: "proj", CWD: t.TempDir()}

	info, err := Create(reg, repo, "feature/x")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := os.Stat(info.Metadata.WorktreePath); err != nil {
		t.Errorf("worktree not on disk: %v", err)
	}
	if info.Metadata.BranchName != "feature/x" {
		t.Errorf("BranchName = %q, want feature/x", info.Metadata.BranchName)
	}
	if meta, _ := LoadMetadata(info.SessionDir); meta == nil {
		t.Errorf("metadata not persisted for %s", info.Metadata.SessionID)
	}

	// A second session on the same branch violates branch exclusion.
	_, err = Create(reg, repo, "feature/x")
	var conflict *git.BranchConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("second Create() error = %v, want *git.BranchConflict", err)
	}
	if conflict.Branch != "feature/x" {
		t.Errorf("conflict.Branch = %q, want feature/x", conflict.Branch)
	}
	if conflict.WorktreePath == "" {
		t.Errorf("conflict.WorktreePath empty")
	}

	if err := Destroy(repo, info, true); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}
	if _, err := os.Stat(info.Metadata.WorktreePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("worktree still on disk after Destroy")
	}
	if _, err := os.Stat(info.SessionDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("session directory still on disk after Destroy")
	}
}

func TestResolveResumeAmbiguous(t *testing.T) {
	t.Setenv(config.RootEnv, t.TempDir())
	const project = "proj"

	seedSession(t, project, "s-a", t.TempDir(), state.NewRunState(state.MachineRunningClaude))
	seedSession(t, project, "s-b", t.TempDir(), state.NewRunState(state.MachineCommitting))

	reg := &Registry{Project: project, CWD: t.TempDir()}
	_, err := ResolveResume(reg)
	ambiguous, ok := err.(*AmbiguousError)
	if !ok {
		t.Fatalf("error type = %T, want *AmbiguousError", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Errorf("Candidates = %d, want 2", len(ambiguous.Candidates))
	}
}
