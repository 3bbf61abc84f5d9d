// repo.go locates the repository relative to the process CWD and
// distinguishes linked worktrees from the main one.
package git

import (
	"path/filepath"
	"strings"
)

// IsRepo reports whether dir is inside a git repository.
func IsRepo(dir string) bool {
	_, err := run(dir, "rev-parse", "--git-dir")
	return err == nil
}

// IsLinkedWorktree reports whether dir belongs to a linked worktree.
// A linked checkout's git dir differs from the repository's common git
// dir; in the main working directory they are the same.
func IsLinkedWorktree(dir string) (bool, error) {
	gitDir, err := run(dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return false, err
	}
	commonDir, err := run(dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return false, err
	}
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(dir, commonDir)
	}
	commonDir = filepath.Clean(commonDir)
	return gitDir != commonDir, nil
}

// MainRepoRoot returns the root of the main working directory no matter
// where inside the repository (including linked worktrees) the process
// runs.
func MainRepoRoot(dir string) (string, error) {
	commonDir, err := run(dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(dir, commonDir)
	}
	commonDir = filepath.Clean(commonDir)
	if strings.HasSuffix(commonDir, string(filepath.Separator)+".git") {
		return filepath.Dir(commonDir), nil
	}
	// Bare or nonstandard layout: fall back to the toplevel.
	return run(dir, "rev-parse", "--show-toplevel")
}

// TopLevel returns the root of the working directory containing dir,
// which for a linked worktree is the worktree root, not the main one.
func TopLevel(dir string) (string, error) {
	return run(dir, "rev-parse", "--show-toplevel")
}

// HeadShortHash returns the abbreviated hash of the most recent commit.
func HeadShortHash(dir string) (string, error) {
	return run(dir, "rev-parse", "--short", "HEAD")
}
