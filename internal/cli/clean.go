// clean.go implements `autom8 clean [--session ID] [--all] [--force]`.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/session"
)

var (
	cleanSession string
	cleanAll     bool
	cleanForce   bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove session state and linked worktrees",
	Long: `Removes a session's state directory and its linked worktree. Stale
sessions (worktree path gone) are removed without --force; sessions with
a resumable run require --force.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}
		infos, err := ctx.Registry.List()
		if err != nil {
			return err
		}

		var targets []session.Info
		switch {
		case cleanSession != "":
			for _, info := range infos {
				if info.Metadata.SessionID == cleanSession {
					targets = append(targets, info)
				}
			}
			if len(targets) == 0 {
				return fmt.Errorf("no session %q in project %s", cleanSession, ctx.Project)
			}
		case cleanAll:
			targets = infos
		default:
			// Default scope: stale sessions only.
			for _, info := range infos {
				if info.Class == session.ClassStale {
					targets = append(targets, info)
				}
			}
			if len(targets) == 0 {
				fmt.Println("No stale sessions to clean. Use --session or --all to remove more.")
				return nil
			}
		}

		for _, info := range targets {
			if err := cleanOne(ctx, info); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanSession, "session", "", "session id to remove")
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "remove every session of the project")
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "remove even sessions with resumable runs")
	rootCmd.AddCommand(cleanCmd)
}

// cleanOne removes a single session's worktree and state directory.
func cleanOne(ctx *projectContext, info session.Info) error {
	if info.Metadata.IsMain() && cleanSession == "" && !cleanForce {
		// The main session only goes when named or forced.
		return nil
	}
	if info.Class != session.ClassStale && !cleanForce {
		if info.RunState != nil && !info.RunState.Terminal() {
			return fmt.Errorf("session %s has a %s run at %s; use --force to discard it",
				info.Metadata.SessionID, info.RunState.Status, info.RunState.MachineState)
		}
	}

	if err := session.Destroy(ctx.MainRoot, &info, cleanForce); err != nil {
		return err
	}
	fmt.Printf("Removed session %s\n", info.Metadata.SessionID)
	return nil
}
