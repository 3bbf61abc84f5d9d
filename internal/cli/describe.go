// describe.go implements `autom8 describe [--session ID]`.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/log"
	"github.com/louisboilard/autom8/internal/session"
	"github.com/louisboilard/autom8/internal/tui"
	"github.com/louisboilard/autom8/internal/ui"
)

var describeSession string

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show one session in detail: metadata, run state, recent events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}

		var info *session.Info
		if describeSession != "" {
			info, err = ctx.Registry.Find(describeSession)
			if err != nil {
				return err
			}
			if info == nil {
				return fmt.Errorf("no session %q in project %s", describeSession, ctx.Project)
			}
		} else {
			info, err = ctx.currentSession()
			if err != nil {
				return err
			}
		}

		meta := info.Metadata
		fmt.Printf("Session:  %s [%s]\n", meta.SessionID, info.Class)
		fmt.Printf("Branch:   %s\n", meta.BranchName)
		fmt.Printf("Worktree: %s\n", meta.WorktreePath)
		fmt.Printf("Created:  %s\n", ui.RelTime(meta.CreatedAt))
		fmt.Printf("Active:   %s\n", ui.RelTime(meta.LastActiveAt))

		if info.RunState != nil {
			fmt.Println()
			fmt.Print(tui.RenderRun(info.RunState))
			printIterations(info)
		} else {
			fmt.Println("\nNo active run.")
		}

		logger, err := log.NewLogger(info.SessionDir)
		if err == nil {
			events, err := logger.Tail(10)
			if err == nil && len(events) > 0 {
				fmt.Println("\nRecent events:")
				for _, ev := range events {
					detail := ev.Detail
					if detail != "" {
						detail = "  " + detail
					}
					fmt.Printf("  %s  %-20s%s\n",
						ev.Time.Local().Format("15:04:05"), ev.Event, detail)
				}
			}
		}
		return nil
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeSession, "session", "", "session id to describe")
	rootCmd.AddCommand(describeCmd)
}

// printIterations renders the iteration records of the active run.
func printIterations(info *session.Info) {
	rs := info.RunState
	if len(rs.Iterations) == 0 {
		return
	}
	fmt.Println("\nIterations:")
	for _, it := range rs.Iterations {
		line := fmt.Sprintf("  %d. %s  %s", it.Number, it.StoryID, it.Status)
		if it.Usage != nil {
			line += fmt.Sprintf("  ($%.4f)", it.Usage.CostUSD)
		}
		fmt.Println(line)
		if it.WorkSummary != "" {
			fmt.Printf("     %s\n", ui.Dim(it.WorkSummary))
		}
	}
}
