package git

import (
	"strings"
	"testing"
)

func TestParseWorktreeList(t *testing.T) {
	out := `worktree /home/u/proj
HEAD 1234567890abcdef
branch refs/heads/main

worktree /home/u/proj-autom8/s-1a2b
HEAD fedcba0987654321
branch refs/heads/feature/x
locked

worktree /home/u/proj-autom8/s-dead
HEAD 1111111111111111
detached
prunable gitdir file points to non-existent location
`
	wts := parseWorktreeList(out)
	if len(wts) != 3 {
		t.Fatalf("parsed %d worktrees, want 3", len(wts))
	}

	main := wts[0]
	if !main.IsMain {
		t.Errorf("first entry IsMain = false, want true")
	}
	if main.Path != "/home/u/proj" || main.Branch != "main" {
		t.Errorf("main = %+v", main)
	}

	linked := wts[1]
	if linked.IsMain {
		t.Errorf("second entry IsMain = true, want false")
	}
	if linked.Branch != "feature/x" {
		t.Errorf("linked.Branch = %q, want %q", linked.Branch, "feature/x")
	}
	if !linked.IsLocked {
		t.Errorf("linked.IsLocked = false, want true")
	}

	detached := wts[2]
	if detached.Branch != "" {
		t.Errorf("detached.Branch = %q, want empty", detached.Branch)
	}
	if !detached.IsPrunable {
		t.Errorf("detached.IsPrunable = false, want true")
	}
}

func TestParseWorktreeListEmpty(t *testing.T) {
	if wts := parseWorktreeList(""); len(wts) != 0 {
		t.Errorf("parseWorktreeList(\"\") = %v, want empty", wts)
	}
}

func TestBranchConflictMessage(t *testing.T) {
	err := &BranchConflict{
		Branch:       "feature/x",
		SessionID:    "s-1a2b",
		WorktreePath: "/home/u/proj-autom8/s-1a2b",
	}
	msg := err.Error()

	for _, want := range []string{
		"feature/x",
		"s-1a2b",
		"/home/u/proj-autom8/s-1a2b",
		"autom8 resume --session s-1a2b",
		"autom8 clean --session s-1a2b",
		"1.", "2.", "3.", "4.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("BranchConflict message missing %q:\n%s", want, msg)
		}
	}
}
