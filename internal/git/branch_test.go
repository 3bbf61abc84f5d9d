package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// repo spins up a real git repository with one commit. Skipped when git
// is not installed.
func repo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-b", "main"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x\n"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	for _, args := range [][]string{{"add", "."}, {"commit", "-m", "init"}} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return dir
}

func TestEnsureBranch(t *testing.T) {
	dir := repo(t)

	if err := EnsureBranch(dir, "feature/x"); err != nil {
		t.Fatalf("EnsureBranch() error: %v", err)
	}
	branch, err := CurrentBranch(dir)
	if err != nil {
		t.Fatalf("CurrentBranch() error: %v", err)
	}
	if branch != "feature/x" {
		t.Errorf("CurrentBranch() = %q, want %q", branch, "feature/x")
	}

	// Idempotent on the same branch.
	if err := EnsureBranch(dir, "feature/x"); err != nil {
		t.Errorf("EnsureBranch() second call error: %v", err)
	}

	// Switches back to an existing branch instead of recreating.
	if err := EnsureBranch(dir, "main"); err != nil {
		t.Errorf("EnsureBranch(main) error: %v", err)
	}
	if !BranchExists(dir, "feature/x") {
		t.Errorf("feature/x disappeared after switching away")
	}
}

func TestHasChanges(t *testing.T) {
	dir := repo(t)

	clean, err := HasChanges(dir)
	if err != nil {
		t.Fatalf("HasChanges() error: %v", err)
	}
	if clean {
		t.Errorf("HasChanges() = true on a clean tree")
	}

	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("y\n"), 0644); err != nil {
		t.Fatalf("modifying file: %v", err)
	}
	dirty, err := HasChanges(dir)
	if err != nil {
		t.Fatalf("HasChanges() error: %v", err)
	}
	if !dirty {
		t.Errorf("HasChanges() = false after modification")
	}
}

func TestMainRepoRootFromWorktree(t *testing.T) {
	dir := repo(t)

	wt := filepath.Join(t.TempDir(), "wt")
	cmd := exec.Command("git", "worktree", "add", "-b", "feature/wt", wt, "HEAD")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git worktree add: %v\n%s", err, out)
	}

	linked, err := IsLinkedWorktree(wt)
	if err != nil {
		t.Fatalf("IsLinkedWorktree() error: %v", err)
	}
	if !linked {
		t.Errorf("IsLinkedWorktree(worktree) = false, want true")
	}

	linked, err = IsLinkedWorktree(dir)
	if err != nil {
		t.Fatalf("IsLinkedWorktree(main) error: %v", err)
	}
	if linked {
		t.Errorf("IsLinkedWorktree(main) = true, want false")
	}

	root, err := MainRepoRoot(wt)
	if err != nil {
		t.Fatalf("MainRepoRoot() error: %v", err)
	}
	resolvedDir, _ := filepath.EvalSymlinks(dir)
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	if resolvedRoot != resolvedDir {
		t.Errorf("MainRepoRoot() = %q, want %q", root, dir)
	}
}
