// registry.go discovers every session of a project and classifies it for
// status, resume, and clean.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/state"
)

// Class is the registry's verdict on a session.
type Class int

const (
	// ClassIdle means the session exists but has no resumable run.
	ClassIdle Class = iota
	// ClassCurrent means the process CWD is inside this session's
	// working directory.
	ClassCurrent
	// ClassStale means the session's worktree path no longer exists.
	ClassStale
	// ClassResumable means a run state exists whose machine state is
	// neither Completed nor Idle.
	ClassResumable
)

// String returns the display name of a class.
func (c Class) String() string {
	switch c {
	case ClassCurrent:
		return "current"
	case ClassStale:
		return "stale"
	case ClassResumable:
		return "resumable"
	default:
		return "idle"
	}
}

// Info is one discovered session with its classification.
type Info struct {
	Metadata   *Metadata
	SessionDir string
	Class      Class
	RunState   *state.RunState // nil when no state.json
}

// Registry enumerates sessions for one project.
type Registry struct {
	Project string
	// CWD is the directory used for the "current" classification;
	// defaults to the process working directory.
	CWD string
}

// List returns every session of the project. A session directory without
// metadata.json is skipped.
func (r *Registry) List() ([]Info, error) {
	projectDir, err := config.ProjectDir(r.Project)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(projectDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project directory: %w", err)
	}

	cwd := r.CWD
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	cwd, _ = filepath.EvalSymlinks(cwd)

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "spec" {
			continue
		}
		sessionDir := filepath.Join(projectDir, e.Name())
		meta, err := LoadMetadata(sessionDir)
		if err != nil || meta == nil {
			continue
		}

		info := Info{Metadata: meta, SessionDir: sessionDir}
		store, err := state.NewStore(sessionDir)
		if err == nil {
			// Corrupt state files do not hide the session; they just
			// leave RunState nil.
			info.RunState, _ = store.LoadCurrent()
		}
		info.Class = classify(meta, info.RunState, cwd)
		infos = append(infos, info)
	}
	return infos, nil
}

// Resumable filters List down to resumable sessions.
func (r *Registry) Resumable() ([]Info, error) {
	infos, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, info := range infos {
		if info.Class == ClassResumable ||
			(info.Class == ClassCurrent && resumableState(info.RunState)) {
			out = append(out, info)
		}
	}
	return out, nil
}

// Find returns the session with the given id, or nil.
func (r *Registry) Find(sessionID string) (*Info, error) {
	infos, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Metadata.SessionID == sessionID {
			return &infos[i], nil
		}
	}
	return nil, nil
}

// FindByWorktree returns the session owning the given working directory.
func (r *Registry) FindByWorktree(path string) (*Info, error) {
	infos, err := r.List()
	if err != nil {
		return nil, err
	}
	resolved, _ := filepath.EvalSymlinks(path)
	for i := range infos {
		if infos[i].Metadata.WorktreePath == path || infos[i].Metadata.WorktreePath == resolved {
			return &infos[i], nil
		}
	}
	return nil, nil
}

// classify applies the precedence stale > current > resumable > idle.
func classify(meta *Metadata, rs *state.RunState, cwd string) Class {
	if _, err := os.Stat(meta.WorktreePath); os.IsNotExist(err) {
		return ClassStale
	}
	if insideDir(cwd, meta.WorktreePath) {
		return ClassCurrent
	}
	if resumableState(rs) {
		return ClassResumable
	}
	return ClassIdle
}

// resumableState reports whether rs represents an unfinished run.
// Interrupted and crashed runs qualify; terminal ones do not.
func resumableState(rs *state.RunState) bool {
	if rs == nil {
		return false
	}
	return !rs.Terminal() && rs.MachineState != state.MachineIdle
}

// insideDir reports whether path is dir or a descendant of it.
func insideDir(path, dir string) bool {
	if path == "" || dir == "" {
		return false
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		dir = resolved
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
