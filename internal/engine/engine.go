// Package engine runs the state machine that takes a feature from a
// markdown spec to a committed branch with a pull request. The engine is
// single-threaded: each state runs to completion, the run state is
// persisted before the next state's side effects begin, and the only
// cancellation channel is a SIGINT flag polled between states.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/git"
	"github.com/louisboilard/autom8/internal/history"
	"github.com/louisboilard/autom8/internal/log"
	"github.com/louisboilard/autom8/internal/plan"
	"github.com/louisboilard/autom8/internal/state"
)

// Sentinel errors surfaced to the CLI layer.
var (
	ErrSpecNotFound        = errors.New("spec file not found")
	ErrNoActiveRun         = errors.New("no active run to resume")
	ErrRunInProgress       = errors.New("a run is already active in this session")
	ErrNoIncompleteStories = errors.New("every story in the plan already passes")
	ErrInterrupted         = errors.New("run interrupted")
	ErrMaxReviewIterations = errors.New("review loop reached its iteration limit")
)

// reviewArtifact is the file the reviewer writes its findings to inside
// the working directory. Absent or empty means the review passed.
const reviewArtifact = "autom8_review.md"

// Engine executes runs for one session of one project.
type Engine struct {
	Project string
	// WorkDir is the session's working directory (main checkout or
	// linked worktree).
	WorkDir string
	Config  *config.Config
	Runner  claude.Runner
	Store   *state.Store
	Logger  *log.Logger

	// BranchOverride, when set, takes precedence over the plan's branch.
	BranchOverride string
	// NoReview and NoPR are per-invocation flag overrides of the config.
	NoReview bool
	NoPR     bool

	// OnOutput receives assistant text deltas; may be nil.
	OnOutput func(string)
	// OnState is notified on every machine-state entry; may be nil.
	OnState func(state.Machine)

	interrupt interruptFlag
}

// RunFromSpec starts a run from a markdown spec file.
func (e *Engine) RunFromSpec(specPath string) error {
	if err := e.checkNoActiveRun(); err != nil {
		return err
	}
	rs := state.NewRunState(state.MachineLoadingSpec)
	rs.SpecPath = specPath
	return e.run(rs)
}

// RunFromPlan starts a run from an existing structured plan file.
func (e *Engine) RunFromPlan(planPath string) error {
	if err := e.checkNoActiveRun(); err != nil {
		return err
	}
	rs := state.NewRunState(state.MachineInitializing)
	rs.PlanPath = planPath
	return e.run(rs)
}

// Resume re-enters an interrupted or crashed run at its recorded machine
// state. A stale in-flight iteration record is finalized as failed; the
// next pass through PickingStory re-selects the story it was working on.
func (e *Engine) Resume() error {
	rs, err := e.Store.LoadCurrent()
	if err != nil {
		return err
	}
	if rs == nil || rs.Terminal() {
		return ErrNoActiveRun
	}
	rs.Resume()
	if len(rs.Iterations) > 0 && rs.Iterations[len(rs.Iterations)-1].Status == state.IterationRunning {
		rs.FinishIteration(state.IterationFailed, "", "", nil)
	}
	return e.run(rs)
}

// checkNoActiveRun enforces one active run per session.
func (e *Engine) checkNoActiveRun() error {
	existing, err := e.Store.LoadCurrent()
	if err != nil {
		var stateErr *state.StateError
		if errors.As(err, &stateErr) {
			// Corrupt state: archive what we can and start fresh.
			fmt.Fprintf(os.Stderr, "Warning: discarding corrupt run state: %v\n", err)
			return e.Store.ClearCurrent()
		}
		return err
	}
	if existing != nil && !existing.Terminal() {
		return fmt.Errorf("%w: run %s is %s at %s; use `autom8 resume` or `autom8 clean`",
			ErrRunInProgress, existing.RunID, existing.Status, existing.MachineState)
	}
	return nil
}

// run drives the state machine until a terminal state or interruption.
// The run state is persisted at the top of every tick, before the
// state's side effects.
func (e *Engine) run(rs *state.RunState) error {
	e.interrupt.Install()
	defer e.interrupt.Release()

	e.logEvent(rs, log.EventRunStarted, "")

	var runErr error
	for {
		if e.interrupt.Set() && !rs.Terminal() {
			rs.Interrupt()
			if err := e.Store.SaveCurrent(rs); err != nil {
				return err
			}
			e.logEvent(rs, log.EventRunInterrupted, string(rs.MachineState))
			return ErrInterrupted
		}

		if err := e.Store.SaveCurrent(rs); err != nil {
			return err
		}
		if e.OnState != nil {
			e.OnState(rs.MachineState)
		}
		e.logEvent(rs, log.EventStateEntered, string(rs.MachineState))

		var err error
		switch rs.MachineState {
		case state.MachineLoadingSpec:
			err = e.stepLoadSpec(rs)
		case state.MachineGeneratingSpec:
			err = e.stepGenerateSpec(rs)
		case state.MachineInitializing:
			err = e.stepInitialize(rs)
		case state.MachinePickingStory:
			err = e.stepPickStory(rs)
		case state.MachineRunningClaude:
			err = e.stepRunClaude(rs)
		case state.MachineReviewing:
			err = e.stepReview(rs)
		case state.MachineCorrecting:
			err = e.stepCorrect(rs)
		case state.MachineCommitting:
			err = e.stepCommit(rs)
		case state.MachineCreatingPR:
			err = e.stepCreatePR(rs)
		case state.MachineCompleted:
			return e.finishCompleted(rs)
		case state.MachineFailed:
			return e.finishFailed(rs, runErr)
		default:
			err = fmt.Errorf("unknown machine state %q", rs.MachineState)
		}

		if err != nil {
			runErr = err
			rs.Fail(err)
		}
	}
}

// stepLoadSpec validates the markdown spec exists and is non-empty.
func (e *Engine) stepLoadSpec(rs *state.RunState) error {
	data, err := os.ReadFile(rs.SpecPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSpecNotFound, rs.SpecPath)
	}
	if err != nil {
		return fmt.Errorf("reading spec %s: %w", rs.SpecPath, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("spec %s is empty", rs.SpecPath)
	}
	rs.MachineState = state.MachineGeneratingSpec
	return nil
}

// stepGenerateSpec turns the markdown spec into a structured plan via
// the assistant, with the retry ladder.
func (e *Engine) stepGenerateSpec(rs *state.RunState) error {
	markdown, err := os.ReadFile(rs.SpecPath)
	if err != nil {
		return fmt.Errorf("reading spec %s: %w", rs.SpecPath, err)
	}

	outPath := planPathFor(rs.SpecPath)
	gen := &plan.Generator{Runner: e.Runner, WorkDir: e.WorkDir}
	p, err := gen.Generate(string(markdown), outPath)
	if err != nil {
		return err
	}

	rs.PlanPath = outPath
	rs.Branch = e.branchFor(p)
	rs.MachineState = state.MachineInitializing
	return nil
}

// stepInitialize validates the plan and checks out its branch.
func (e *Engine) stepInitialize(rs *state.RunState) error {
	p, err := plan.Load(rs.PlanPath)
	if err != nil {
		return err
	}
	if rs.Branch == "" {
		rs.Branch = e.branchFor(p)
	}
	if err := git.EnsureBranch(e.WorkDir, rs.Branch); err != nil {
		return err
	}
	rs.MachineState = state.MachinePickingStory
	return nil
}

// stepPickStory re-reads the plan from disk and selects the next
// incomplete story. The plan is never cached across iterations: the
// assistant flips pass flags in the file between ticks.
func (e *Engine) stepPickStory(rs *state.RunState) error {
	p, err := plan.Load(rs.PlanPath)
	if err != nil {
		return err
	}

	story := p.NextIncompleteStory()
	if story == nil {
		if e.reviewEnabled() {
			rs.MachineState = state.MachineReviewing
		} else {
			rs.MachineState = state.MachineCommitting
		}
		return nil
	}

	rs.CurrentStory = story.ID
	rs.MachineState = state.MachineRunningClaude
	return nil
}

// stepRunClaude spawns one implementation iteration for the current
// story and classifies the outcome.
func (e *Engine) stepRunClaude(rs *state.RunState) error {
	if rs.CurrentStory == "" {
		// Resume landed here without a selected story; re-pick.
		rs.MachineState = state.MachinePickingStory
		return nil
	}
	p, err := plan.Load(rs.PlanPath)
	if err != nil {
		return err
	}
	story := storyByID(p, rs.CurrentStory)
	if story == nil || story.Passes {
		rs.CurrentStory = ""
		rs.MachineState = state.MachinePickingStory
		return nil
	}

	iter := rs.StartIteration(story.ID)
	if err := e.Store.SaveCurrent(rs); err != nil {
		return err
	}
	e.logStoryEvent(rs, log.EventIterationStarted, story.ID, fmt.Sprintf("iteration %d", iter.Number))

	prompt := buildImplementPrompt(rs.PlanPath, story, iter.Number)
	res, err := e.invoke(rs, prompt)
	if err != nil {
		return err
	}
	e.logStoryEvent(rs, log.EventIterationFinished, story.ID, res.Outcome.String())

	if e.interrupt.Set() {
		// The child took the SIGINT with us; its exit status is noise.
		// Stay in RunningClaude so resume re-runs this story.
		rs.FinishIteration(state.IterationFailed, res.Text, res.WorkSummary, res.Usage)
		return nil
	}

	switch res.Outcome {
	case claude.Failed:
		rs.FinishIteration(state.IterationFailed, res.Text, res.WorkSummary, res.Usage)
		return res.Failure
	case claude.AllStoriesComplete:
		rs.FinishIteration(state.IterationSuccess, res.Text, res.WorkSummary, res.Usage)
		if e.reviewEnabled() {
			rs.MachineState = state.MachineReviewing
		} else {
			rs.MachineState = state.MachineCommitting
		}
	default:
		rs.FinishIteration(state.IterationSuccess, res.Text, res.WorkSummary, res.Usage)
		rs.MachineState = state.MachinePickingStory
	}
	return nil
}

// stepReview runs the reviewer and inspects the review artifact it may
// have written.
func (e *Engine) stepReview(rs *state.RunState) error {
	if !e.reviewEnabled() {
		rs.MachineState = state.MachineCommitting
		return nil
	}

	res, err := e.invoke(rs, buildReviewPrompt(rs.PlanPath))
	if err != nil {
		return err
	}
	if res.Outcome == claude.Failed {
		return res.Failure
	}
	e.addUsage(rs, res.Usage)

	issues, err := e.readReviewArtifact()
	if err != nil {
		return err
	}
	if issues == "" {
		e.logEvent(rs, log.EventReviewPassed, "")
		rs.MachineState = state.MachineCommitting
		return nil
	}

	e.logEvent(rs, log.EventReviewIssues, firstLine(issues))
	if rs.ReviewIteration >= e.maxReviewIterations() {
		return fmt.Errorf("%w (%d cycles)", ErrMaxReviewIterations, rs.ReviewIteration)
	}
	rs.ReviewIteration++
	rs.MachineState = state.MachineCorrecting
	return nil
}

// stepCorrect runs one correction cycle against the review artifact.
func (e *Engine) stepCorrect(rs *state.RunState) error {
	res, err := e.invoke(rs, buildCorrectPrompt(rs.ReviewIteration))
	if err != nil {
		return err
	}
	if res.Outcome == claude.Failed {
		return res.Failure
	}
	e.addUsage(rs, res.Usage)
	rs.MachineState = state.MachineReviewing
	return nil
}

// stepCommit asks the assistant to commit whatever remains uncommitted.
// "nothing to commit" is a normal outcome, not a failure.
func (e *Engine) stepCommit(rs *state.RunState) error {
	res, err := e.invoke(rs, buildCommitPrompt(e.Project, e.Config.Run.CommitPrefix))
	if err != nil {
		return err
	}
	if res.Outcome == claude.Failed {
		return res.Failure
	}
	e.addUsage(rs, res.Usage)

	if claude.ReportsNothingToCommit(res.Text) {
		e.logEvent(rs, log.EventCommitCreated, "nothing to commit")
	} else if hash, err := git.HeadShortHash(e.WorkDir); err == nil {
		e.logEvent(rs, log.EventCommitCreated, hash)
	}

	rs.MachineState = state.MachineCreatingPR
	return nil
}

// stepCreatePR opens or updates the pull request. PR failures are
// recorded but never fail the run.
func (e *Engine) stepCreatePR(rs *state.RunState) error {
	pr := e.createPR(rs)
	switch pr.Status {
	case PRCreated, PRUpdated, PRAlreadyExists:
		e.logEvent(rs, log.EventPRCreated, pr.URL)
	case PRSkipped:
		e.logEvent(rs, log.EventPRSkipped, pr.Reason)
	case PRFailed:
		fmt.Fprintf(os.Stderr, "Warning: pull request creation failed: %v\n", pr.Err)
		e.logEvent(rs, log.EventPRSkipped, pr.Err.Error())
		rs.LastError = pr.Err.Error()
	}
	rs.Complete()
	return nil
}

// finishCompleted archives a successful run and clears the active state.
func (e *Engine) finishCompleted(rs *state.RunState) error {
	if err := e.Store.SaveCurrent(rs); err != nil {
		return err
	}
	if _, err := e.Store.Archive(rs); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: archiving run state: %v\n", err)
	}
	if err := e.Store.ClearCurrent(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: clearing run state: %v\n", err)
	}
	e.recordHistory(rs)
	e.logEvent(rs, log.EventRunCompleted, "")
	return nil
}

// finishFailed archives a failed run but keeps the current state file so
// status and describe can show what went wrong.
func (e *Engine) finishFailed(rs *state.RunState, runErr error) error {
	if err := e.Store.SaveCurrent(rs); err != nil {
		return err
	}
	if _, err := e.Store.Archive(rs); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: archiving run state: %v\n", err)
	}
	e.recordHistory(rs)
	e.logEvent(rs, log.EventRunFailed, rs.LastError)

	if runErr != nil {
		return runErr
	}
	return errors.New(rs.LastError)
}

// invoke spawns the assistant with the engine's output callback and logs
// the spawn/exit pair.
func (e *Engine) invoke(rs *state.RunState, prompt string) (*claude.Result, error) {
	e.logEvent(rs, log.EventClaudeSpawned, string(rs.MachineState))
	res, err := e.Runner.Run(claude.RunOptions{
		Prompt:   prompt,
		WorkDir:  e.WorkDir,
		OnOutput: e.OnOutput,
	})
	if err != nil {
		return nil, err
	}
	e.logEvent(rs, log.EventClaudeExited, res.Outcome.String())
	return res, nil
}

// readReviewArtifact returns the trimmed contents of the review file.
// Absent counts as empty.
func (e *Engine) readReviewArtifact() (string, error) {
	data, err := os.ReadFile(filepath.Join(e.WorkDir, reviewArtifact))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", reviewArtifact, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// recordHistory writes the terminal run into the cross-project history
// database. Never fatal.
func (e *Engine) recordHistory(rs *state.RunState) {
	dbPath, err := config.HistoryDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: resolving history database: %v\n", err)
		return
	}
	store, err := history.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: opening history database: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.RecordRun(e.Project, rs); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: recording run history: %v\n", err)
	}
}

// addUsage accumulates usage from non-iteration invocations (review,
// correct, commit) into the run total.
func (e *Engine) addUsage(rs *state.RunState, u *claude.Usage) {
	if u == nil {
		return
	}
	if rs.Usage == nil {
		rs.Usage = &claude.Usage{}
	}
	rs.Usage.Add(u)
}

func (e *Engine) reviewEnabled() bool {
	return e.Config.Run.ReviewEnabled && !e.NoReview
}

func (e *Engine) maxReviewIterations() int {
	if n := e.Config.Run.MaxReviewIterations; n > 0 {
		return n
	}
	return 3
}

// branchFor resolves the branch a run works on: the CLI override wins,
// then the plan's branch, prefixed per config when the plan named a bare
// branch.
func (e *Engine) branchFor(p *plan.Plan) string {
	if e.BranchOverride != "" {
		return e.BranchOverride
	}
	branch := p.Branch()
	prefix := e.Config.Run.BranchPrefix
	if prefix != "" && !strings.Contains(branch, "/") {
		branch = prefix + branch
	}
	return branch
}

// logEvent appends one run-scoped event, warning instead of failing.
func (e *Engine) logEvent(rs *state.RunState, event, detail string) {
	e.logStoryEvent(rs, event, "", detail)
}

func (e *Engine) logStoryEvent(rs *state.RunState, event, storyID, detail string) {
	if e.Logger == nil {
		return
	}
	err := e.Logger.Append(log.Event{
		Event:   event,
		RunID:   rs.RunID,
		StoryID: storyID,
		State:   string(rs.MachineState),
		Detail:  detail,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: appending event log: %v\n", err)
	}
}

// planPathFor derives the structured plan path next to a markdown spec.
func planPathFor(specPath string) string {
	base := strings.TrimSuffix(specPath, filepath.Ext(specPath))
	return base + ".plan.json"
}

// storyByID finds a story in the plan, or nil.
func storyByID(p *plan.Plan, id string) *plan.Story {
	for i := range p.UserStories {
		if p.UserStories[i].ID == id {
			return &p.UserStories[i]
		}
	}
	return nil
}

// firstLine returns the first line of s for compact event details.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
