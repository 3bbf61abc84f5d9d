package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/log"
	"github.com/louisboilard/autom8/internal/state"
	"github.com/louisboilard/autom8/internal/testutil"
)

// newEngine builds an engine over a real git repo, a temp session dir,
// and the given fake runner. PR creation is disabled so the phase
// resolves to Skipped without touching gh.
func newEngine(t *testing.T, runner claude.Runner) *Engine {
	t.Helper()
	t.Setenv(config.RootEnv, t.TempDir())

	workDir := testutil.GitRepo(t)
	sessionDir := t.TempDir()
	store, err := state.NewStore(sessionDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	logger, err := log.NewLogger(sessionDir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Run.AutoPR = false

	return &Engine{
		Project: "proj",
		WorkDir: workDir,
		Config:  cfg,
		Runner:  runner,
		Store:   store,
		Logger:  logger,
	}
}

func TestStraightThroughRun(t *testing.T) {
	// Three stories, priorities 1/2/3. Each invocation marks the next
	// story complete on disk, the way the assistant does.
	p := testutil.NewPlan("proj", 3)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	runner := &testutil.FakeRunner{
		Results: []*claude.Result{
			testutil.TextResult("did s-1"),
			testutil.TextResult("did s-2"),
			testutil.TextResult("did s-3"),
			testutil.TextResult("review clean"),
			testutil.TextResult("committed"),
		},
		SideEffects: []func(){
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-1") },
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-2") },
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-3") },
		},
	}

	eng := newEngine(t, runner)
	if err := eng.RunFromPlan(planPath); err != nil {
		t.Fatalf("RunFromPlan() error: %v", err)
	}

	// 3 implement + 1 review + 1 commit.
	if runner.Calls != 5 {
		t.Errorf("assistant invocations = %d, want 5", runner.Calls)
	}

	// Completed runs clear the current state and leave an archive.
	current, err := eng.Store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if current != nil {
		t.Errorf("current state still present after completion")
	}
	archived, err := eng.Store.ListArchived()
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("archived runs = %d, want 1", len(archived))
	}

	rs := archived[0]
	if rs.Status != state.StatusCompleted || rs.MachineState != state.MachineCompleted {
		t.Errorf("terminal state = %s/%s, want completed/completed", rs.Status, rs.MachineState)
	}
	if rs.FinishedAt == nil {
		t.Errorf("FinishedAt not set on completed run")
	}
	if len(rs.Iterations) != 3 {
		t.Fatalf("iterations = %d, want 3", len(rs.Iterations))
	}
	for i, it := range rs.Iterations {
		if it.Status != state.IterationSuccess {
			t.Errorf("iteration %d status = %s, want success", i+1, it.Status)
		}
		if it.Number != i+1 {
			t.Errorf("iteration numbers not monotonic: %d at index %d", it.Number, i)
		}
	}
}

func TestCompletionMarkerShortCircuit(t *testing.T) {
	p := testutil.NewPlan("proj", 5)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	runner := &testutil.FakeRunner{
		Results: []*claude.Result{
			{
				Outcome: claude.AllStoriesComplete,
				Text:    "all done <promise>COMPLETE</promise>",
			},
			testutil.TextResult("review clean"),
			testutil.TextResult("nothing to commit"),
		},
		SideEffects: []func(){
			func() {
				for _, id := range []string{"s-1", "s-2", "s-3", "s-4", "s-5"} {
					testutil.MarkStoryOnDisk(t, planPath, id)
				}
			},
		},
	}

	eng := newEngine(t, runner)
	if err := eng.RunFromPlan(planPath); err != nil {
		t.Fatalf("RunFromPlan() error: %v", err)
	}

	archived, err := eng.Store.ListArchived()
	if err != nil || len(archived) != 1 {
		t.Fatalf("ListArchived = %v, %v", archived, err)
	}
	rs := archived[0]
	if len(rs.Iterations) != 1 {
		t.Errorf("iterations = %d, want exactly 1", len(rs.Iterations))
	}
	if rs.Status != state.StatusCompleted {
		t.Errorf("Status = %s, want completed", rs.Status)
	}
	// Marker run still goes through review and commit: 3 invocations.
	if runner.Calls != 3 {
		t.Errorf("assistant invocations = %d, want 3", runner.Calls)
	}
}

func TestFailedIterationFailsRun(t *testing.T) {
	p := testutil.NewPlan("proj", 2)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	runner := &testutil.FakeRunner{
		Results: []*claude.Result{
			testutil.FailedResult(1, "boom"),
		},
	}

	eng := newEngine(t, runner)
	err := eng.RunFromPlan(planPath)
	if err == nil {
		t.Fatalf("RunFromPlan() error = nil, want failure")
	}
	var exitErr *claude.ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("error type = %T, want *claude.ExitError", err)
	}

	// Failed runs keep the current state so resume can inspect it.
	current, err := eng.Store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if current == nil {
		t.Fatalf("current state cleared on failure")
	}
	if current.Status != state.StatusFailed || current.MachineState != state.MachineFailed {
		t.Errorf("state = %s/%s, want failed/failed", current.Status, current.MachineState)
	}
	if current.LastError == "" {
		t.Errorf("LastError empty on failed run")
	}
}

func TestReviewLoopCorrectsThenPasses(t *testing.T) {
	p := testutil.NewPlan("proj", 1)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	var eng *Engine
	artifact := func() string { return filepath.Join(eng.WorkDir, reviewArtifact) }

	runner := &testutil.FakeRunner{
		Results: []*claude.Result{
			testutil.TextResult("did s-1"),       // implement
			testutil.TextResult("found issues"),  // review 1
			testutil.TextResult("fixed"),         // correct
			testutil.TextResult("review clean"),  // review 2
			testutil.TextResult("committed"),     // commit
		},
		SideEffects: []func(){
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-1") },
			func() {
				if err := os.WriteFile(artifact(), []byte("1. bug in handler\n"), 0644); err != nil {
					t.Fatalf("writing review artifact: %v", err)
				}
			},
			func() {
				if err := os.Remove(artifact()); err != nil {
					t.Fatalf("removing review artifact: %v", err)
				}
			},
		},
	}

	eng = newEngine(t, runner)
	if err := eng.RunFromPlan(planPath); err != nil {
		t.Fatalf("RunFromPlan() error: %v", err)
	}
	if runner.Calls != 5 {
		t.Errorf("assistant invocations = %d, want 5", runner.Calls)
	}

	archived, _ := eng.Store.ListArchived()
	if len(archived) != 1 || archived[0].ReviewIteration != 1 {
		t.Errorf("ReviewIteration = %d, want 1", archived[0].ReviewIteration)
	}
}

func TestReviewLoopExhaustionFails(t *testing.T) {
	p := testutil.NewPlan("proj", 1)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	var eng *Engine
	writeArtifact := func() {
		path := filepath.Join(eng.WorkDir, reviewArtifact)
		if err := os.WriteFile(path, []byte("1. still broken\n"), 0644); err != nil {
			t.Fatalf("writing review artifact: %v", err)
		}
	}

	// implement, then review/correct cycles that never converge.
	runner := &testutil.FakeRunner{
		Results: []*claude.Result{
			testutil.TextResult("did s-1"),
			testutil.TextResult("issues"), testutil.TextResult("fixing"),
			testutil.TextResult("issues"), testutil.TextResult("fixing"),
			testutil.TextResult("issues"), testutil.TextResult("fixing"),
			testutil.TextResult("issues"),
		},
		SideEffects: []func(){
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-1") },
			writeArtifact, nil,
			writeArtifact, nil,
			writeArtifact, nil,
			writeArtifact,
		},
	}

	eng = newEngine(t, runner)
	err := eng.RunFromPlan(planPath)
	if !errors.Is(err, ErrMaxReviewIterations) {
		t.Fatalf("RunFromPlan() error = %v, want ErrMaxReviewIterations", err)
	}

	current, _ := eng.Store.LoadCurrent()
	if current == nil || current.Status != state.StatusFailed {
		t.Errorf("state after exhaustion = %+v, want failed", current)
	}
}

func TestInterruptAndResume(t *testing.T) {
	p := testutil.NewPlan("proj", 3)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	var eng *Engine
	runner := &testutil.FakeRunner{
		Results: []*claude.Result{
			testutil.TextResult("did s-1"),
			testutil.TextResult("killed mid-flight"),
		},
		SideEffects: []func(){
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-1") },
			// SIGINT lands while iteration 2's child runs; the story is
			// not marked complete.
			func() { eng.RequestInterrupt() },
		},
	}

	eng = newEngine(t, runner)
	err := eng.RunFromPlan(planPath)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("RunFromPlan() error = %v, want ErrInterrupted", err)
	}

	current, err := eng.Store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if current == nil {
		t.Fatalf("no current state after interrupt")
	}
	if current.Status != state.StatusInterrupted {
		t.Errorf("Status = %s, want interrupted", current.Status)
	}
	if current.MachineState != state.MachineRunningClaude {
		t.Errorf("MachineState = %s, want running_claude preserved", current.MachineState)
	}
	if current.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", current.Iteration)
	}

	// Resume re-enters RunningClaude, re-picks s-2 (still incomplete),
	// and runs it as iteration 3.
	resumeRunner := &testutil.FakeRunner{
		Results: []*claude.Result{
			testutil.TextResult("did s-2"),
			testutil.TextResult("did s-3"),
			testutil.TextResult("review clean"),
			testutil.TextResult("committed"),
		},
		SideEffects: []func(){
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-2") },
			func() { testutil.MarkStoryOnDisk(t, planPath, "s-3") },
		},
	}
	eng2 := &Engine{
		Project: eng.Project,
		WorkDir: eng.WorkDir,
		Config:  eng.Config,
		Runner:  resumeRunner,
		Store:   eng.Store,
		Logger:  eng.Logger,
	}
	if err := eng2.Resume(); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}

	archived, err := eng2.Store.ListArchived()
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("archived runs = %d, want 1", len(archived))
	}
	rs := archived[0]
	if rs.Status != state.StatusCompleted {
		t.Errorf("Status after resume = %s, want completed", rs.Status)
	}
	if rs.Iteration != 4 {
		t.Errorf("final Iteration = %d, want 4 (2 before + 2 after resume)", rs.Iteration)
	}
	// The re-entry iteration targets the story that was in flight.
	if rs.Iterations[2].StoryID != "s-2" {
		t.Errorf("iteration 3 story = %s, want s-2", rs.Iterations[2].StoryID)
	}
}

func TestRunInProgressRejected(t *testing.T) {
	p := testutil.NewPlan("proj", 1)
	planPath := testutil.WritePlan(t, t.TempDir(), p)

	eng := newEngine(t, &testutil.FakeRunner{})
	active := state.NewRunState(state.MachineRunningClaude)
	if err := eng.Store.SaveCurrent(active); err != nil {
		t.Fatalf("SaveCurrent: %v", err)
	}

	err := eng.RunFromPlan(planPath)
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("RunFromPlan() error = %v, want ErrRunInProgress", err)
	}
}

func TestResumeWithoutState(t *testing.T) {
	eng := newEngine(t, &testutil.FakeRunner{})
	if err := eng.Resume(); !errors.Is(err, ErrNoActiveRun) {
		t.Errorf("Resume() error = %v, want ErrNoActiveRun", err)
	}
}

func TestMissingSpecFails(t *testing.T) {
	eng := newEngine(t, &testutil.FakeRunner{})
	err := eng.RunFromSpec(filepath.Join(t.TempDir(), "absent.md"))
	if !errors.Is(err, ErrSpecNotFound) {
		t.Errorf("RunFromSpec() error = %v, want ErrSpecNotFound", err)
	}
}
