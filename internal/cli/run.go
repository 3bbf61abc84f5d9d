// run.go implements `autom8 run [spec.md|plan.json]`.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/engine"
	"github.com/louisboilard/autom8/internal/plan"
	"github.com/louisboilard/autom8/internal/session"
)

var (
	runBranch   string
	runNoReview bool
	runNoPR     bool
	runWorktree bool
)

var runCmd = &cobra.Command{
	Use:   "run [spec.md|plan.json]",
	Short: "Run a feature from a markdown spec or a structured plan",
	Long: `Runs the implementation loop. A markdown spec is first turned into a
structured plan by the assistant; a .json argument is used as the plan
directly. With no argument, the project's spec directory is searched for
a single markdown spec.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}

		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			path, err = defaultSpec(ctx)
			if err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("spec %s not found\n"+
				"Either:\n"+
				"  1. check the path\n"+
				"  2. run `autom8` with no arguments to write one interactively\n"+
				"  3. run `autom8 init` to scaffold the project", path)
		}

		// A plan with nothing left to do is informational, not an error.
		if filepath.Ext(path) == ".json" {
			if p, err := plan.Load(path); err == nil && p.AllComplete() {
				fmt.Printf("%v: %s\n", engine.ErrNoIncompleteStories, path)
				return nil
			}
		}
		return startRun(ctx, path)
	},
}

func init() {
	runCmd.Flags().StringVar(&runBranch, "branch", "", "branch to work on (overrides the plan)")
	runCmd.Flags().BoolVar(&runNoReview, "no-review", false, "skip the review/correction loop")
	runCmd.Flags().BoolVar(&runNoPR, "no-pr", false, "skip pull request creation")
	runCmd.Flags().BoolVar(&runWorktree, "worktree", false, "run in a fresh linked-worktree session")
	rootCmd.AddCommand(runCmd)
}

// newWorktreeSession provisions an isolated linked-worktree session for
// the run. The branch must be known up front: from --branch, or from the
// plan when one is given directly.
func newWorktreeSession(ctx *projectContext, path string) (*session.Info, error) {
	branch := runBranch
	if branch == "" && filepath.Ext(path) == ".json" {
		p, err := plan.Load(path)
		if err != nil {
			return nil, err
		}
		branch = p.Branch()
	}
	if branch == "" {
		return nil, fmt.Errorf("--worktree with a markdown spec needs --branch:\n" +
			"the working branch is not known until the plan is generated.\n" +
			"  autom8 run --worktree --branch feature/name <spec.md>")
	}

	info, err := session.Create(ctx.Registry, ctx.MainRoot, branch)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Created session %s on %s\n  %s\n",
		info.Metadata.SessionID, branch, info.Metadata.WorktreePath)
	return info, nil
}

// defaultSpec resolves the no-argument case to the project's only
// markdown spec, or errors listing the candidates.
func defaultSpec(ctx *projectContext) (string, error) {
	entries, err := os.ReadDir(ctx.SpecDir)
	if err != nil {
		return "", fmt.Errorf("no spec given and none found under %s\n"+
			"Run `autom8 init` first, or `autom8` alone to write a spec interactively", ctx.SpecDir)
	}

	var specs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || name == "TEMPLATE.md" {
			continue
		}
		specs = append(specs, filepath.Join(ctx.SpecDir, name))
	}

	switch len(specs) {
	case 0:
		return "", fmt.Errorf("no markdown spec under %s\n"+
			"Run `autom8` alone to write one interactively", ctx.SpecDir)
	case 1:
		return specs[0], nil
	default:
		return "", fmt.Errorf("several specs under %s; name one:\n  autom8 run %s",
			ctx.SpecDir, strings.Join(specs, "\n  autom8 run "))
	}
}
