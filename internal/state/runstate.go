// Package state defines the run-state checkpoint and its per-session
// on-disk store. The checkpoint is written atomically at every state
// transition so a crashed or interrupted run can resume exactly where it
// stopped. The on-disk JSON is the persistent contract: new fields must
// be optional with safe defaults so older files keep deserializing.
package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/louisboilard/autom8/internal/claude"
)

// Status is the lifecycle status of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Machine is a node in the run state machine.
type Machine string

const (
	MachineIdle           Machine = "idle"
	MachineLoadingSpec    Machine = "loading_spec"
	MachineGeneratingSpec Machine = "generating_spec"
	MachineInitializing   Machine = "initializing"
	MachinePickingStory   Machine = "picking_story"
	MachineRunningClaude  Machine = "running_claude"
	MachineReviewing      Machine = "reviewing"
	MachineCorrecting     Machine = "correcting"
	MachineCommitting     Machine = "committing"
	MachineCreatingPR     Machine = "creating_pr"
	MachineCompleted      Machine = "completed"
	MachineFailed         Machine = "failed"
)

// IterationStatus is the status of one implementation iteration.
type IterationStatus string

const (
	IterationRunning IterationStatus = "running"
	IterationSuccess IterationStatus = "success"
	IterationFailed  IterationStatus = "failed"
)

// snippetLimit bounds the captured output snippet per iteration.
const snippetLimit = 2000

// Iteration records one assistant invocation targeting a story.
type Iteration struct {
	Number        int             `json:"number"`
	StoryID       string          `json:"story_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Status        IterationStatus `json:"status"`
	OutputSnippet string          `json:"output_snippet,omitempty"`
	WorkSummary   string          `json:"work_summary,omitempty"`
	Usage         *claude.Usage   `json:"usage,omitempty"`
}

// RunState is the checkpoint persisted on every transition.
type RunState struct {
	RunID           string        `json:"run_id"`
	Status          Status        `json:"status"`
	MachineState    Machine       `json:"machine_state"`
	PlanPath        string        `json:"plan_path,omitempty"`
	SpecPath        string        `json:"spec_path,omitempty"`
	Branch          string        `json:"branch,omitempty"`
	CurrentStory    string        `json:"current_story,omitempty"`
	Iteration       int           `json:"iteration"`
	ReviewIteration int           `json:"review_iteration"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	Iterations      []Iteration   `json:"iterations"`
	Usage           *claude.Usage `json:"usage,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
}

// NewRunState creates a fresh running state entering the given machine
// node.
func NewRunState(machine Machine) *RunState {
	return &RunState{
		RunID:        uuid.New().String(),
		Status:       StatusRunning,
		MachineState: machine,
		StartedAt:    time.Now().UTC(),
	}
}

// StartIteration increments the iteration counter, appends a Running
// iteration record for storyID, and sets the current story.
func (r *RunState) StartIteration(storyID string) *Iteration {
	r.Iteration++
	r.CurrentStory = storyID
	r.Iterations = append(r.Iterations, Iteration{
		Number:    r.Iteration,
		StoryID:   storyID,
		StartedAt: time.Now().UTC(),
		Status:    IterationRunning,
	})
	return &r.Iterations[len(r.Iterations)-1]
}

// FinishIteration closes the last iteration record. Earlier records are
// never mutated. No-op if there is no open iteration.
func (r *RunState) FinishIteration(status IterationStatus, snippet, workSummary string, usage *claude.Usage) {
	if len(r.Iterations) == 0 {
		return
	}
	last := &r.Iterations[len(r.Iterations)-1]
	if last.Status != IterationRunning {
		return
	}
	now := time.Now().UTC()
	last.FinishedAt = &now
	last.Status = status
	last.OutputSnippet = truncateSnippet(snippet)
	last.WorkSummary = workSummary
	last.Usage = usage
	r.CurrentStory = ""

	if usage != nil {
		if r.Usage == nil {
			r.Usage = &claude.Usage{}
		}
		r.Usage.Add(usage)
	}
}

// Complete marks the run terminal-successful.
func (r *RunState) Complete() {
	now := time.Now().UTC()
	r.Status = StatusCompleted
	r.MachineState = MachineCompleted
	r.FinishedAt = &now
}

// Fail marks the run terminal-failed and records the error. An open
// iteration is finalized as failed.
func (r *RunState) Fail(err error) {
	if len(r.Iterations) > 0 && r.Iterations[len(r.Iterations)-1].Status == IterationRunning {
		r.FinishIteration(IterationFailed, "", "", nil)
	}
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.MachineState = MachineFailed
	r.FinishedAt = &now
	if err != nil {
		r.LastError = err.Error()
	}
}

// Interrupt marks the run interrupted without changing the machine
// state, so resume re-enters the same node.
func (r *RunState) Interrupt() {
	now := time.Now().UTC()
	r.Status = StatusInterrupted
	r.FinishedAt = &now
}

// Resume reverts an interrupted state to running for re-entry.
func (r *RunState) Resume() {
	r.Status = StatusRunning
	r.FinishedAt = nil
	r.LastError = ""
}

// Terminal reports whether the machine reached a terminal node.
func (r *RunState) Terminal() bool {
	return r.MachineState == MachineCompleted || r.MachineState == MachineFailed
}

// truncateSnippet bounds captured output for the iteration record.
func truncateSnippet(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	return s[len(s)-snippetLimit:]
}
