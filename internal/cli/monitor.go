// monitor.go implements `autom8 monitor`: the live terminal dashboard.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/tui"
	"github.com/louisboilard/autom8/internal/ui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the current project's sessions and active run live",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}

		if !ui.IsTTY(os.Stdout) {
			// One-shot plain print for pipes and scripts.
			infos, err := ctx.Registry.List()
			if err != nil {
				return err
			}
			fmt.Print(tui.RenderSessions(infos))
			for _, info := range infos {
				if info.RunState != nil && !info.RunState.Terminal() {
					fmt.Println()
					fmt.Print(tui.RenderRun(info.RunState))
				}
			}
			return nil
		}

		program := tui.NewMonitor(ctx.Project, ctx.Registry, ctx.Config.Monitor.RefreshSeconds)
		_, err = program.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
