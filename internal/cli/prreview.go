// prreview.go implements `autom8 pr-review [number]`: a one-shot
// assistant review of a pull-request diff, outside any run.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/git"
	"github.com/louisboilard/autom8/prompts"
)

var prReviewTmpl = template.Must(template.New("pr-review").Parse(prompts.PRReviewTemplate))

var prReviewCmd = &cobra.Command{
	Use:   "pr-review [number]",
	Short: "Have the assistant review a pull-request diff",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}
		if !git.GHAvailable() {
			return fmt.Errorf("%w: pr-review needs the gh CLI", git.ErrGHNotFound)
		}

		number := 0
		if len(args) == 1 {
			number, err = strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid PR number %q", args[0])
			}
		}

		diff, err := git.PRDiff(ctx.WorkDir, number)
		if err != nil {
			return err
		}
		if strings.TrimSpace(diff) == "" {
			return fmt.Errorf("empty diff; is there an open PR for this branch?")
		}

		title := ""
		if number == 0 {
			branch, err := git.CurrentBranch(ctx.WorkDir)
			if err == nil {
				if pr, err := git.PRForBranch(ctx.WorkDir, branch); err == nil && pr != nil {
					title = pr.Title
				}
			}
		}

		var b strings.Builder
		if err := prReviewTmpl.Execute(&b, struct {
			Title string
			Diff  string
		}{Title: title, Diff: diff}); err != nil {
			return err
		}

		runner := &claude.CLIRunner{
			Bin:               ctx.Config.Claude.Bin,
			Model:             ctx.Config.Claude.Model,
			BypassPermissions: true,
		}
		res, err := runner.Run(claude.RunOptions{
			Prompt:   b.String(),
			WorkDir:  ctx.WorkDir,
			OnOutput: func(text string) { fmt.Print(text) },
		})
		if err != nil {
			return err
		}
		fmt.Println()
		if res.Outcome == claude.Failed {
			return res.Failure
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prReviewCmd)
}
