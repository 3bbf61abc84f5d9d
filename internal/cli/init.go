// init.go implements `autom8 init`: project scaffolding.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/config"
)

const specTemplate = `# Project

Name the feature and describe it in one paragraph.

# Branch

feature/short-name

# User Stories

1. First story title
   A short description of the smallest useful increment.
   - acceptance criterion one
   - acceptance criterion two

2. Second story title
   ...
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold autom8 for the current repository",
	Long: `Creates the project's configuration directory, a spec directory with a
starter template, and the default config. Idempotent: existing files are
reported, never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadProjectContext()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(ctx.SpecDir, 0755); err != nil {
			return fmt.Errorf("creating spec directory: %w", err)
		}
		fmt.Printf("Project %s configured under %s\n", ctx.Project, filepath.Dir(ctx.SpecDir))

		tmplPath := filepath.Join(ctx.SpecDir, "TEMPLATE.md")
		if _, err := os.Stat(tmplPath); errors.Is(err, os.ErrNotExist) {
			if err := os.WriteFile(tmplPath, []byte(specTemplate), 0644); err != nil {
				return fmt.Errorf("writing spec template: %w", err)
			}
			fmt.Printf("Wrote %s\n", tmplPath)
		} else {
			fmt.Printf("Spec template already present: %s\n", tmplPath)
		}

		projectDir, err := config.ProjectDir(ctx.Project)
		if err != nil {
			return err
		}
		cfgPath := filepath.Join(projectDir, "config.yaml")
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			if err := config.WriteConfig(ctx.Project, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", cfgPath)
		} else {
			fmt.Printf("Config already present: %s\n", cfgPath)
		}

		fmt.Println("\nNext: copy the template, fill it in, and run `autom8 run <spec.md>`,")
		fmt.Println("or run `autom8` alone to write the spec interactively.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
