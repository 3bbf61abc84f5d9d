// improve.go implements `autom8 improve [spec.md]`: an interactive
// assistant session to rework an existing spec, then an offer to run it.
package cli

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/snapshot"
	"github.com/louisboilard/autom8/prompts"
)

var improveTmpl = template.Must(template.New("improve").Parse(prompts.ImproveSpecTemplate))

var improveCmd = &cobra.Command{
	Use:   "improve [spec.md]",
	Short: "Interactively improve an existing spec, then offer to run it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}

		var specPath string
		if len(args) == 1 {
			specPath = args[0]
		} else {
			specPath, err = defaultSpec(ctx)
			if err != nil {
				return err
			}
		}

		snap, err := snapshot.Capture(ctx.SpecDir, ctx.WorkDir)
		if err != nil {
			return err
		}

		var b strings.Builder
		if err := improveTmpl.Execute(&b, struct{ SpecPath string }{SpecPath: specPath}); err != nil {
			return err
		}
		if err := claude.RunInteractive(ctx.Config.Claude.Bin, ctx.WorkDir, b.String()); err != nil {
			return err
		}

		changed, err := snap.Detect()
		if err != nil {
			return err
		}
		target := specPath
		if len(changed) == 1 {
			target = changed[0]
		} else if len(changed) > 1 {
			target, err = pickDetectedSpec(snap)
			if err != nil {
				return err
			}
		}

		if !confirm(fmt.Sprintf("Run implementation from %s?", target)) {
			fmt.Printf("Run it later with: autom8 run %s\n", target)
			return nil
		}
		return startRun(ctx, target)
	},
}

func init() {
	rootCmd.AddCommand(improveCmd)
}
