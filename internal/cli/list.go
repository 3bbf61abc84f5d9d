// list.go implements `autom8 list`: a tree of projects, their sessions,
// and archived runs.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/session"
	"github.com/louisboilard/autom8/internal/state"
	"github.com/louisboilard/autom8/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects with their sessions and runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := config.ListProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet. Run `autom8 init` inside a repository.")
			return nil
		}

		for _, project := range projects {
			fmt.Println(project)
			reg := &session.Registry{Project: project}
			infos, err := reg.List()
			if err != nil {
				fmt.Printf("  (error: %v)\n", err)
				continue
			}
			if len(infos) == 0 {
				fmt.Println("  (no sessions)")
				continue
			}
			for _, info := range infos {
				fmt.Printf("  %s [%s] %s\n",
					info.Metadata.SessionID, info.Class, info.Metadata.BranchName)
				printRuns(info)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// printRuns shows a session's active and archived runs, newest first.
func printRuns(info session.Info) {
	if rs := info.RunState; rs != nil {
		fmt.Printf("    run %s  %s at %s (%d iterations)\n",
			shortID(rs.RunID), rs.Status, rs.MachineState, rs.Iteration)
	}
	store, err := state.NewStore(info.SessionDir)
	if err != nil {
		return
	}
	archived, err := store.ListArchived()
	if err != nil {
		return
	}
	for _, rs := range archived {
		fmt.Printf("    run %s  %s, started %s\n",
			shortID(rs.RunID), rs.Status, ui.RelTime(rs.StartedAt))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
