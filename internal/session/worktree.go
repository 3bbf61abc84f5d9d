// worktree.go is the session-aware face of the worktree manager: it
// creates and destroys linked checkouts and attributes branch conflicts
// to the session holding the branch.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/git"
)

// CheckBranchFree verifies no other working directory has branch checked
// out. On conflict it returns a BranchConflict attributed to the session
// that owns the offending worktree ("unknown" when no session claims it).
func CheckBranchFree(reg *Registry, mainRoot, branch, selfWorktree string) error {
	wt, err := git.FindWorktreeForBranch(mainRoot, branch)
	if err != nil {
		return err
	}
	if wt == nil || wt.Path == selfWorktree {
		return nil
	}

	conflict := &git.BranchConflict{
		Branch:       branch,
		SessionID:    "unknown",
		WorktreePath: wt.Path,
	}
	if owner, err := reg.FindByWorktree(wt.Path); err == nil && owner != nil {
		conflict.SessionID = owner.Metadata.SessionID
	} else if wt.IsMain {
		conflict.SessionID = MainSessionID
	}
	return conflict
}

// Create provisions a new linked-worktree session on branch: it checks
// the branch-exclusion invariant, adds the worktree under a sibling
// directory of the main checkout, and persists the session metadata.
func Create(reg *Registry, mainRoot, branch string) (*Info, error) {
	if err := CheckBranchFree(reg, mainRoot, branch, ""); err != nil {
		return nil, err
	}

	id := NewSessionID()
	wtPath := filepath.Join(filepath.Dir(mainRoot), filepath.Base(mainRoot)+"-autom8", id)
	if err := os.MkdirAll(filepath.Dir(wtPath), 0755); err != nil {
		return nil, fmt.Errorf("creating worktree parent directory: %w", err)
	}
	if err := git.AddWorktree(mainRoot, wtPath, branch); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := &Metadata{
		SessionID:    id,
		WorktreePath: wtPath,
		BranchName:   branch,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	sessionDir, err := config.SessionDir(reg.Project, id)
	if err != nil {
		return nil, err
	}
	if err := SaveMetadata(sessionDir, meta); err != nil {
		return nil, err
	}
	return &Info{Metadata: meta, SessionDir: sessionDir, Class: ClassIdle}, nil
}

// EnsureMain makes sure the main working directory has a session record
// and returns it.
func EnsureMain(reg *Registry, mainRoot, branch string) (*Info, error) {
	sessionDir, err := config.SessionDir(reg.Project, MainSessionID)
	if err != nil {
		return nil, err
	}

	meta, err := LoadMetadata(sessionDir)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if meta == nil {
		meta = &Metadata{
			SessionID: MainSessionID,
			CreatedAt: now,
		}
	}
	meta.WorktreePath = mainRoot
	meta.BranchName = branch
	meta.LastActiveAt = now
	if err := SaveMetadata(sessionDir, meta); err != nil {
		return nil, err
	}
	return &Info{Metadata: meta, SessionDir: sessionDir, Class: ClassCurrent}, nil
}

// Destroy removes a session: its linked worktree (unless it is the main
// session or already gone) and its state directory.
func Destroy(mainRoot string, info *Info, force bool) error {
	if !info.Metadata.IsMain() {
		if _, err := os.Stat(info.Metadata.WorktreePath); err == nil {
			if err := git.RemoveWorktree(mainRoot, info.Metadata.WorktreePath, force); err != nil {
				return err
			}
		}
	}
	if err := os.RemoveAll(info.SessionDir); err != nil {
		return fmt.Errorf("removing session directory: %w", err)
	}
	return nil
}
