// Package git wraps the git and gh command lines used by autom8. Every
// invocation checks the exit status and folds stderr into the returned
// error; callers never see raw tool errors.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	ErrGitNotFound = errors.New("git not found in PATH")
	ErrGHNotFound  = errors.New("gh CLI not found in PATH; install GitHub CLI first")
	ErrNotARepo    = errors.New("not a git repository")
)

// ensureGit checks that git is available in PATH.
func ensureGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitNotFound
	}
	return nil
}

// run executes git with args in dir (empty = CWD) and returns trimmed
// stdout. Failure wraps the combined output.
func run(dir string, args ...string) (string, error) {
	if err := ensureGit(); err != nil {
		return "", err
	}
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}
