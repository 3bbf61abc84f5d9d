// projects.go implements `autom8 projects`: every project known from the
// config root or the history store.
package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/history"
	"github.com/louisboilard/autom8/internal/session"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List every known project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seen := map[string]bool{}

		fromDisk, err := config.ListProjects()
		if err != nil {
			return err
		}
		for _, p := range fromDisk {
			seen[p] = true
		}

		if dbPath, err := config.HistoryDBPath(); err == nil {
			if store, err := history.Open(dbPath); err == nil {
				if fromHistory, err := store.Projects(); err == nil {
					for _, p := range fromHistory {
						seen[p] = true
					}
				}
				_ = store.Close()
			}
		}

		if len(seen) == 0 {
			fmt.Println("No projects yet. Run `autom8 init` inside a repository.")
			return nil
		}

		names := make([]string, 0, len(seen))
		for p := range seen {
			names = append(names, p)
		}
		sort.Strings(names)

		for _, p := range names {
			reg := &session.Registry{Project: p}
			infos, err := reg.List()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: listing sessions of %s: %v\n", p, err)
			}
			fmt.Printf("%-24s %d session(s)\n", p, len(infos))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}
