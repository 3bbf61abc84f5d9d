// pr.go is the CreatingPR phase: push the branch and open or refresh the
// pull request. Every failure mode here is non-fatal to the run.
package engine

import (
	"fmt"
	"strings"

	"github.com/louisboilard/autom8/internal/git"
	"github.com/louisboilard/autom8/internal/plan"
	"github.com/louisboilard/autom8/internal/state"
)

// PRStatus classifies the CreatingPR phase outcome.
type PRStatus int

const (
	PRSkipped PRStatus = iota
	PRCreated
	PRAlreadyExists
	PRUpdated
	PRFailed
)

// String returns the display name of a PR status.
func (s PRStatus) String() string {
	switch s {
	case PRCreated:
		return "created"
	case PRAlreadyExists:
		return "already_exists"
	case PRUpdated:
		return "updated"
	case PRFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// PRResult is the outcome of the CreatingPR phase.
type PRResult struct {
	Status PRStatus
	URL    string
	Reason string // set for Skipped
	Err    error  // set for Failed
}

// createPR decides whether a PR can be opened and does so. Preconditions
// that fail (no gh, no auth, disabled) produce Skipped; operational
// failures produce Failed. Neither aborts the run.
func (e *Engine) createPR(rs *state.RunState) PRResult {
	if e.NoPR || !e.Config.Run.AutoPR {
		return PRResult{Status: PRSkipped, Reason: "pull request creation disabled"}
	}
	if !git.GHAvailable() {
		return PRResult{Status: PRSkipped, Reason: "gh not installed"}
	}
	if !git.GHAuthOK() {
		return PRResult{Status: PRSkipped, Reason: "gh not authenticated"}
	}
	base := e.Config.Run.PRBase
	if base == "" {
		base = "main"
	}
	if rs.Branch == "" || rs.Branch == base {
		return PRResult{Status: PRSkipped, Reason: fmt.Sprintf("on base branch %s", base)}
	}

	if err := git.Push(e.WorkDir, rs.Branch); err != nil {
		return PRResult{Status: PRFailed, Err: err}
	}

	title, body := e.prContent(rs)

	existing, err := git.PRForBranch(e.WorkDir, rs.Branch)
	if err != nil {
		return PRResult{Status: PRFailed, Err: err}
	}
	if existing != nil {
		if err := git.EditPR(e.WorkDir, existing.Number, body); err != nil {
			return PRResult{Status: PRAlreadyExists, URL: existing.URL}
		}
		return PRResult{Status: PRUpdated, URL: existing.URL}
	}

	url, err := git.CreatePR(e.WorkDir, title, body, base, e.Config.Run.PRDraft)
	if err != nil {
		return PRResult{Status: PRFailed, Err: err}
	}
	return PRResult{Status: PRCreated, URL: url}
}

// prContent builds the PR title and body from the plan and the run's
// iteration records.
func (e *Engine) prContent(rs *state.RunState) (title, body string) {
	title = e.Project
	var b strings.Builder

	if p, err := plan.Load(rs.PlanPath); err == nil {
		if p.Description != "" {
			title = p.Description
		}
		b.WriteString("## Stories\n\n")
		for _, s := range p.UserStories {
			mark := " "
			if s.Passes {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", mark, s.ID, s.Title)
		}
		b.WriteString("\n")
	}

	var summaries []string
	for _, it := range rs.Iterations {
		if it.WorkSummary != "" {
			summaries = append(summaries, fmt.Sprintf("- %s: %s", it.StoryID, it.WorkSummary))
		}
	}
	if len(summaries) > 0 {
		b.WriteString("## Work log\n\n")
		b.WriteString(strings.Join(summaries, "\n"))
		b.WriteString("\n")
	}

	return title, b.String()
}
