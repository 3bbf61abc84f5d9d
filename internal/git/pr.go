// pr.go wraps the gh CLI for pull-request operations. Absence of the
// tool or auth failures are expected in normal operation; callers map
// them to a skipped outcome rather than an error.
package git

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// GHAvailable reports whether the gh executable is in PATH.
func GHAvailable() bool {
	_, err := exec.LookPath("gh")
	return err == nil
}

// GHAuthOK reports whether gh has working credentials.
func GHAuthOK() bool {
	return exec.Command("gh", "auth", "status").Run() == nil
}

// PRInfo is one pull request from a gh listing.
type PRInfo struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	State  string `json:"state"`
	Title  string `json:"title"`
}

// PRForBranch returns the open PR whose head is branch, or nil.
func PRForBranch(dir, branch string) (*PRInfo, error) {
	cmd := exec.Command("gh", "pr", "list",
		"--head", branch,
		"--state", "open",
		"--json", "number,url,state,title",
		"--limit", "1",
	)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("gh pr list: %s: %w", strings.TrimSpace(string(out)), err)
	}

	var prs []PRInfo
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &prs[0], nil
}

// CreatePR opens a pull request from the current branch and returns its
// URL.
func CreatePR(dir, title, body, base string, draft bool) (string, error) {
	args := []string{"pr", "create",
		"--title", title,
		"--body", body,
		"--base", base,
	}
	if draft {
		args = append(args, "--draft")
	}
	cmd := exec.Command("gh", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("gh pr create: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// EditPR updates the body of an existing pull request.
func EditPR(dir string, number int, body string) error {
	cmd := exec.Command("gh", "pr", "edit", fmt.Sprintf("%d", number), "--body", body)
	if dir != "" {
		cmd.Dir = dir
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("gh pr edit: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// PRDiff returns the diff of a pull request, or of the current branch's
// PR when number is 0.
func PRDiff(dir string, number int) (string, error) {
	args := []string{"pr", "diff"}
	if number > 0 {
		args = append(args, fmt.Sprintf("%d", number))
	}
	cmd := exec.Command("gh", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("gh pr diff: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
