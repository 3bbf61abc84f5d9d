// Package testutil provides shared test fixtures: a scripted fake
// assistant runner, plan builders, and a real-git repository scaffold.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/plan"
)

// FakeRunner implements claude.Runner with queued results. Each Run call
// records the prompt it received, executes an optional side effect, and
// dequeues the next result. Running past the script returns a plain
// Success result.
type FakeRunner struct {
	// Results are consumed in order, one per Run call.
	Results []*claude.Result
	// Errs parallels Results; a non-nil entry is returned instead.
	Errs []error
	// SideEffects parallels Results; a non-nil entry runs before the
	// result is returned, simulating the assistant's tool use.
	SideEffects []func()

	Prompts []string
	Calls   int
}

// Run implements claude.Runner.
func (f *FakeRunner) Run(opts claude.RunOptions) (*claude.Result, error) {
	i := f.Calls
	f.Calls++
	f.Prompts = append(f.Prompts, opts.Prompt)

	if i < len(f.SideEffects) && f.SideEffects[i] != nil {
		f.SideEffects[i]()
	}
	if i < len(f.Errs) && f.Errs[i] != nil {
		return nil, f.Errs[i]
	}
	if i < len(f.Results) && f.Results[i] != nil {
		res := f.Results[i]
		if opts.OnOutput != nil && res.Text != "" {
			opts.OnOutput(res.Text)
		}
		return res, nil
	}
	return &claude.Result{Outcome: claude.Success}, nil
}

// TextResult builds a Success result carrying text.
func TextResult(text string) *claude.Result {
	return &claude.Result{Outcome: claude.Success, Text: text}
}

// FailedResult builds a Failed result with an exit code.
func FailedResult(code int, stderr string) *claude.Result {
	return &claude.Result{
		Outcome: claude.Failed,
		Failure: &claude.ExitError{ExitCode: code, StderrTail: stderr},
	}
}

// NewPlan builds a plan with n incomplete stories with priorities
// 1..n and ids s-1..s-n.
func NewPlan(project string, n int) *plan.Plan {
	p := &plan.Plan{
		Project:    project,
		BranchName: "feature/" + project,
	}
	for i := 1; i <= n; i++ {
		p.UserStories = append(p.UserStories, plan.Story{
			ID:       storyID(i),
			Title:    "Story " + storyID(i),
			Priority: i,
		})
	}
	return p
}

func storyID(i int) string {
	return "s-" + string(rune('0'+i))
}

// WritePlan saves p under dir and returns the plan path.
func WritePlan(t *testing.T, dir string, p *plan.Plan) string {
	t.Helper()
	path := filepath.Join(dir, "plan.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("saving plan fixture: %v", err)
	}
	return path
}

// MarkStoryOnDisk flips one story's pass flag in the on-disk plan, the
// way the assistant does between iterations.
func MarkStoryOnDisk(t *testing.T, path, id string) {
	t.Helper()
	p, err := plan.Load(path)
	if err != nil {
		t.Fatalf("loading plan fixture: %v", err)
	}
	if !p.MarkStoryComplete(id) {
		t.Fatalf("story %s not in plan", id)
	}
	if err := p.Save(path); err != nil {
		t.Fatalf("saving plan fixture: %v", err)
	}
}

// GitRepo initializes a real git repository with one commit in a temp
// dir and returns its path. The test is skipped when git is absent.
func GitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitRun(t, dir, "init", "-b", "main")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0644); err != nil {
		t.Fatalf("writing README: %v", err)
	}
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "initial commit")
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}
