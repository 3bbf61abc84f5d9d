// status.go implements `autom8 status [--global]`.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/history"
	"github.com/louisboilard/autom8/internal/tui"
	"github.com/louisboilard/autom8/internal/ui"
)

var statusGlobal bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current project's sessions and active run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusGlobal {
			return globalStatus()
		}

		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}
		infos, err := ctx.Registry.List()
		if err != nil {
			return err
		}

		fmt.Printf("Project: %s\n\n", ctx.Project)
		fmt.Print(tui.RenderSessions(infos))

		shown := false
		for _, info := range infos {
			if info.RunState == nil {
				continue
			}
			fmt.Println()
			fmt.Print(tui.RenderRun(info.RunState))
			shown = true
		}
		if !shown {
			fmt.Println("\nNo active run.")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusGlobal, "global", false, "cross-project roll-up from the history store")
	rootCmd.AddCommand(statusCmd)
}

// globalStatus prints the cross-project roll-up from the history store.
func globalStatus() error {
	dbPath, err := config.HistoryDBPath()
	if err != nil {
		return err
	}
	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("no run history yet: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns("", 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-20s %-12s %-10s %-14s %6s %10s %s\n",
		"PROJECT", "STATUS", "ITERS", "STATE", "COST", "TOKENS", "STARTED")
	for _, r := range runs {
		fmt.Printf("%-20s %-12s %-10d %-14s $%5.2f %10d %s\n",
			r.Project, r.Status, r.Iterations, r.MachineState,
			r.CostUSD, r.InputTokens+r.OutputTokens, ui.RelTime(r.StartedAt))
	}
	return nil
}
