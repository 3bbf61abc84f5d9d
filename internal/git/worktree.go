// worktree.go manages linked working directories and enforces the
// branch-exclusion invariant: git refuses to check out a branch that is
// already checked out elsewhere, and we surface that refusal as a
// structured BranchConflict.
package git

import (
	"fmt"
	"strings"
)

// Worktree is one record from the porcelain worktree listing. The first
// entry git reports is always the main working directory.
type Worktree struct {
	Path       string
	Branch     string // empty = detached HEAD
	Commit     string
	IsMain     bool
	IsBare     bool
	IsLocked   bool
	IsPrunable bool
}

// WorktreeError wraps a failed worktree operation.
type WorktreeError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WorktreeError) Error() string {
	return fmt.Sprintf("worktree %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap supports errors.Is/As.
func (e *WorktreeError) Unwrap() error { return e.Err }

// BranchConflict reports that a branch is already checked out by another
// session. The message carries everything needed to recover without
// reading source.
type BranchConflict struct {
	Branch       string
	SessionID    string
	WorktreePath string
}

// Error implements the error interface.
func (e *BranchConflict) Error() string {
	return fmt.Sprintf(`branch %q is already checked out by session %s
  worktree: %s

To proceed, do one of the following:
  1. Wait for session %s to finish.
  2. Re-run with a different branch name.
  3. Resume the other session: autom8 resume --session %s
  4. Clean up the other session: autom8 clean --session %s`,
		e.Branch, e.SessionID, e.WorktreePath, e.SessionID, e.SessionID, e.SessionID)
}

// ListWorktrees parses `git worktree list --porcelain` run from dir.
func ListWorktrees(dir string) ([]Worktree, error) {
	out, err := run(dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, &WorktreeError{Op: "list", Path: dir, Err: err}
	}
	return parseWorktreeList(out), nil
}

// parseWorktreeList turns porcelain output into Worktree records.
// Records are separated by blank lines; the first is the main worktree.
func parseWorktreeList(out string) []Worktree {
	var worktrees []Worktree
	var current *Worktree

	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			// Attribute line before any worktree line; ignore.
		case strings.HasPrefix(line, "HEAD "):
			current.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "bare":
			current.IsBare = true
		case line == "detached":
			current.Branch = ""
		case line == "locked" || strings.HasPrefix(line, "locked "):
			current.IsLocked = true
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.IsPrunable = true
		}
	}
	flush()

	if len(worktrees) > 0 {
		worktrees[0].IsMain = true
	}
	return worktrees
}

// FindWorktreeForBranch returns the worktree holding branch, or nil.
func FindWorktreeForBranch(dir, branch string) (*Worktree, error) {
	worktrees, err := ListWorktrees(dir)
	if err != nil {
		return nil, err
	}
	for i := range worktrees {
		if worktrees[i].Branch == branch {
			return &worktrees[i], nil
		}
	}
	return nil, nil
}

// AddWorktree creates a linked working directory at path on the given
// branch: checking the branch out if it exists, otherwise creating it
// off the current HEAD.
func AddWorktree(dir, path, branch string) error {
	var err error
	if BranchExists(dir, branch) {
		_, err = run(dir, "worktree", "add", path, branch)
	} else {
		_, err = run(dir, "worktree", "add", "-b", branch, path, "HEAD")
	}
	if err != nil {
		return &WorktreeError{Op: "add", Path: path, Err: err}
	}
	return nil
}

// RemoveWorktree removes the linked working directory at path.
func RemoveWorktree(dir, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := run(dir, args...); err != nil {
		return &WorktreeError{Op: "remove", Path: path, Err: err}
	}
	return nil
}
