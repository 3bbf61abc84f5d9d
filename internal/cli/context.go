// context.go resolves the per-invocation project context: which git
// repository we are in, which session owns the CWD, and the project's
// configuration.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/engine"
	"github.com/louisboilard/autom8/internal/git"
	"github.com/louisboilard/autom8/internal/log"
	"github.com/louisboilard/autom8/internal/session"
	"github.com/louisboilard/autom8/internal/state"
	"github.com/louisboilard/autom8/internal/ui"
)

// projectContext is everything a command needs about where it runs. The
// project identity is the basename of the main repository root, so every
// worktree of a repository shares one project.
type projectContext struct {
	Project  string
	WorkDir  string // root of the checkout containing the CWD
	MainRoot string // root of the main working directory
	SpecDir  string
	Config   *config.Config
	Registry *session.Registry
}

// loadProjectContext builds the context from the process CWD.
func loadProjectContext() (*projectContext, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	if !git.IsRepo(cwd) {
		return nil, fmt.Errorf("%w\n"+
			"autom8 operates on a git repository. Either:\n"+
			"  1. cd into the repository you want to work on\n"+
			"  2. git init a new one first", git.ErrNotARepo)
	}

	workDir, err := git.TopLevel(cwd)
	if err != nil {
		return nil, err
	}
	mainRoot, err := git.MainRepoRoot(cwd)
	if err != nil {
		return nil, err
	}
	project := filepath.Base(mainRoot)

	// Project .env reaches the assistant subprocess.
	if err := config.LoadEnv(workDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: loading .env: %v\n", err)
	}

	cfg, err := config.ReadConfig(project)
	if err != nil {
		return nil, err
	}
	specDir, err := config.SpecDir(project)
	if err != nil {
		return nil, err
	}

	return &projectContext{
		Project:  project,
		WorkDir:  workDir,
		MainRoot: mainRoot,
		SpecDir:  specDir,
		Config:   cfg,
		Registry: &session.Registry{Project: project},
	}, nil
}

// currentSession returns the session owning the CWD, registering the
// main session on first use.
func (ctx *projectContext) currentSession() (*session.Info, error) {
	linked, err := git.IsLinkedWorktree(ctx.WorkDir)
	if err != nil {
		return nil, err
	}
	if linked {
		info, err := ctx.Registry.FindByWorktree(ctx.WorkDir)
		if err != nil {
			return nil, err
		}
		if info != nil {
			return info, nil
		}
		// A worktree created outside autom8; adopt it as a session.
		branch, err := git.CurrentBranch(ctx.WorkDir)
		if err != nil {
			return nil, err
		}
		return adoptWorktree(ctx, branch)
	}

	branch, err := git.CurrentBranch(ctx.WorkDir)
	if err != nil {
		return nil, err
	}
	return session.EnsureMain(ctx.Registry, ctx.MainRoot, branch)
}

// adoptWorktree registers session metadata for a linked worktree that
// was created outside autom8.
func adoptWorktree(ctx *projectContext, branch string) (*session.Info, error) {
	id := session.NewSessionID()
	sessionDir, err := config.SessionDir(ctx.Project, id)
	if err != nil {
		return nil, err
	}
	meta := &session.Metadata{
		SessionID:    id,
		WorktreePath: ctx.WorkDir,
		BranchName:   branch,
	}
	if err := session.SaveMetadata(sessionDir, meta); err != nil {
		return nil, err
	}
	return &session.Info{Metadata: meta, SessionDir: sessionDir, Class: session.ClassCurrent}, nil
}

// buildEngine assembles an engine bound to one session.
func buildEngine(ctx *projectContext, info *session.Info) (*engine.Engine, *ui.Spinner, error) {
	store, err := state.NewStore(info.SessionDir)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.NewLogger(info.SessionDir)
	if err != nil {
		return nil, nil, err
	}

	runner := &claude.CLIRunner{
		Bin:               ctx.Config.Claude.Bin,
		Model:             ctx.Config.Claude.Model,
		AllowedTools:      ctx.Config.Claude.AllowedTools,
		BypassPermissions: ctx.Config.Claude.PermissionMode != "mediated",
	}

	workDir := info.Metadata.WorktreePath
	if workDir == "" {
		workDir = ctx.WorkDir
	}

	eng := &engine.Engine{
		Project: ctx.Project,
		WorkDir: workDir,
		Config:  ctx.Config,
		Runner:  runner,
		Store:   store,
		Logger:  logger,
	}

	spinner := ui.NewSpinner(os.Stdout, "starting")
	if verbose {
		eng.OnOutput = func(text string) { fmt.Print(text) }
		eng.OnState = func(m state.Machine) { ui.Phase(os.Stdout, string(m)) }
	} else {
		eng.OnState = func(m state.Machine) { spinner.SetMessage(string(m)) }
	}
	return eng, spinner, nil
}

// startRun launches a run from a spec or plan path, with the spinner
// active on a terminal. With --worktree the run gets a fresh isolated
// session; otherwise it uses the session owning the CWD.
func startRun(ctx *projectContext, path string) error {
	var info *session.Info
	var err error
	if runWorktree {
		info, err = newWorktreeSession(ctx, path)
	} else {
		info, err = ctx.currentSession()
	}
	if err != nil {
		return err
	}

	eng, spinner, err := buildEngine(ctx, info)
	if err != nil {
		return err
	}
	eng.BranchOverride = runBranch
	eng.NoReview = runNoReview
	eng.NoPR = runNoPR

	markRunning(info, true)
	defer markRunning(info, false)

	if !verbose {
		spinner.Start()
		defer spinner.Stop()
	}

	var runErr error
	if filepath.Ext(path) == ".json" {
		runErr = eng.RunFromPlan(path)
	} else {
		runErr = eng.RunFromSpec(path)
	}
	spinner.Stop()

	if runErr != nil {
		return runErr
	}
	ui.Success(os.Stdout, "Run completed: %s", shortPath(path))
	return nil
}

// markRunning flips the session's running flag and touches its activity
// timestamp. Failures only warn: metadata is advisory.
func markRunning(info *session.Info, running bool) {
	info.Metadata.IsRunning = running
	if err := session.Touch(info.SessionDir, info.Metadata); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: updating session metadata: %v\n", err)
	}
}
