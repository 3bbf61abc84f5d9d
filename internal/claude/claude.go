// Package claude drives the external assistant CLI. One Run call spawns
// one child process, writes the prompt to its stdin, streams its
// newline-delimited JSON events, and classifies the exit. The driver is
// synchronous: it returns when the child exits.
package claude

import (
	"fmt"
	"strings"
)

// Outcome classifies a completed assistant invocation.
type Outcome int

const (
	// Success means the child exited zero without a completion marker.
	Success Outcome = iota
	// AllStoriesComplete means the completion marker appeared in the
	// streamed text: every story in the plan is now done.
	AllStoriesComplete
	// NothingToCommit is produced only in commit mode, when the child
	// reported an empty working tree.
	NothingToCommit
	// Failed means the child exited non-zero.
	Failed
)

// String returns the display name of an outcome.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AllStoriesComplete:
		return "all_stories_complete"
	case NothingToCommit:
		return "nothing_to_commit"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Usage holds token counters harvested from result events.
type Usage struct {
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	CacheReadTokens int     `json:"cache_read_tokens"`
	TotalTokens     int     `json:"total_tokens"`
	CostUSD         float64 `json:"cost_usd"`
}

// Add accumulates o into u.
func (u *Usage) Add(o *Usage) {
	if o == nil {
		return
	}
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheReadTokens += o.CacheReadTokens
	u.TotalTokens += o.TotalTokens
	u.CostUSD += o.CostUSD
}

// RunOptions configures a single assistant invocation.
type RunOptions struct {
	Prompt   string
	WorkDir  string
	OnOutput func(string)       // called with each text delta; may be nil
	Mediator PermissionMediator // non-nil enables permission-mediated mode
}

// Result is what a completed invocation produced. A non-zero exit becomes
// Outcome Failed with Failure set; it is never surfaced as an error.
type Result struct {
	Outcome     Outcome
	Text        string // concatenation of all text deltas
	WorkSummary string // extracted <work-summary> content, possibly empty
	Tags        ContextTags
	Usage       *Usage
	Failure     *ExitError // set iff Outcome == Failed
}

// ExitError carries the exit status and stderr tail of a failed child.
type ExitError struct {
	ExitCode   int
	StderrTail string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	tail := strings.TrimSpace(e.StderrTail)
	if tail == "" {
		return fmt.Sprintf("claude exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("claude exited with code %d: %s", e.ExitCode, tail)
}

// Runner is the narrow interface the engine and the spec generator
// consume. Implementations spawn the assistant; tests substitute scripted
// fakes.
type Runner interface {
	Run(opts RunOptions) (*Result, error)
}
