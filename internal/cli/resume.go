// resume.go implements `autom8 resume [--session ID] [--list]`.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/engine"
	"github.com/louisboilard/autom8/internal/session"
	"github.com/louisboilard/autom8/internal/tui"
	"github.com/louisboilard/autom8/internal/ui"
)

var (
	resumeSession string
	resumeList    bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume an interrupted or crashed run",
	Long: `Re-enters a run at the state it was interrupted in. Without flags the
session is resolved automatically: the current linked worktree's session
wins; otherwise a single resumable session is picked; otherwise the
candidates are listed for selection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}

		if resumeList {
			return listResumable(ctx)
		}

		info, err := resolveTarget(ctx)
		if err != nil {
			return err
		}
		if info == nil {
			return nil // picker cancelled
		}

		eng, spinner, err := buildEngine(ctx, info)
		if err != nil {
			return err
		}
		markRunning(info, true)
		defer markRunning(info, false)
		if !verbose {
			spinner.Start()
			defer spinner.Stop()
		}

		err = eng.Resume()
		spinner.Stop()
		if errors.Is(err, engine.ErrNoActiveRun) {
			return fmt.Errorf("session %s has no resumable run", info.Metadata.SessionID)
		}
		if err != nil {
			return err
		}
		ui.Success(os.Stdout, "Run completed in session %s", info.Metadata.SessionID)
		return nil
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeSession, "session", "", "session id to resume")
	resumeCmd.Flags().BoolVar(&resumeList, "list", false, "list resumable sessions and exit")
	rootCmd.AddCommand(resumeCmd)
}

// resolveTarget applies the resume resolution policy, falling back to
// the interactive picker on ambiguity.
func resolveTarget(ctx *projectContext) (*session.Info, error) {
	if resumeSession != "" {
		info, err := ctx.Registry.Find(resumeSession)
		if err != nil {
			return nil, err
		}
		if info == nil {
			return nil, fmt.Errorf("no session %q in project %s", resumeSession, ctx.Project)
		}
		return info, nil
	}

	info, err := session.ResolveResume(ctx.Registry)
	var ambiguous *session.AmbiguousError
	if errors.As(err, &ambiguous) {
		if ui.IsTTY(os.Stdout) {
			return tui.PickSession(ambiguous.Candidates)
		}
		fmt.Fprintln(os.Stderr, "Several sessions are resumable:")
		tui.PrintSessionList(os.Stderr, ambiguous.Candidates)
		return nil, fmt.Errorf("pick one with: autom8 resume --session <id>")
	}
	if errors.Is(err, session.ErrNoResumable) {
		return nil, fmt.Errorf("nothing to resume in project %s", ctx.Project)
	}
	return info, err
}

// listResumable prints the resumable sessions without resuming any.
func listResumable(ctx *projectContext) error {
	infos, err := ctx.Registry.Resumable()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Printf("No resumable sessions in project %s\n", ctx.Project)
		return nil
	}
	fmt.Printf("Resumable sessions in %s:\n", ctx.Project)
	tui.PrintSessionList(os.Stdout, infos)
	return nil
}
