// Package cli wires the cobra command tree. Each subcommand lives in its
// own file and registers itself in init(). The bare invocation runs the
// interactive spec-creation flow followed by implementation.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/louisboilard/autom8/internal/claude"
	"github.com/louisboilard/autom8/internal/snapshot"
	"github.com/louisboilard/autom8/internal/ui"
	"github.com/louisboilard/autom8/prompts"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "autom8",
	Short: "Drive the claude CLI through a spec, story by story, to a PR",
	Long: `autom8 orchestrates the claude CLI to implement a feature from a
markdown spec: it generates a structured plan, implements each user
story in its own iteration, reviews and corrects the result, commits,
and opens a pull request. Runs are crash-safe and resumable.

Invoked without a subcommand, autom8 starts an interactive session to
help you write a spec, then offers to implement it.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runCreateFlow,
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "stream assistant output and informational messages")
}

// Execute runs the command tree. Any error exits non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runCreateFlow is the bare invocation: snapshot the spec directories,
// hand the terminal to the assistant to write a spec, detect what it
// produced, and offer to run it.
func runCreateFlow(cmd *cobra.Command, args []string) error {
	ctx, err := loadProjectContext()
	if err != nil {
		return err
	}

	snap, err := snapshot.Capture(ctx.SpecDir, ctx.WorkDir)
	if err != nil {
		return err
	}

	ui.Phase(os.Stdout, "Interactive spec creation")
	prompt := prompts.CreateSpecPrompt +
		fmt.Sprintf("\n\nThe spec directory for this project is %s.\n", ctx.SpecDir)
	if err := claude.RunInteractive(ctx.Config.Claude.Bin, ctx.WorkDir, prompt); err != nil {
		return err
	}

	specPath, err := pickDetectedSpec(snap)
	if err != nil {
		return err
	}

	if !confirm(fmt.Sprintf("Run implementation from %s?", specPath)) {
		fmt.Printf("Run it later with: autom8 run %s\n", specPath)
		return nil
	}
	return startRun(ctx, specPath)
}

// pickDetectedSpec resolves the snapshot detection to exactly one file,
// asking the user when several candidates appeared.
func pickDetectedSpec(snap *snapshot.Snapshot) (string, error) {
	changed, err := snap.Detect()
	if err != nil {
		return "", err
	}
	switch len(changed) {
	case 0:
		return "", fmt.Errorf("no new spec file detected\n" +
			"The assistant session ended without writing a markdown file.\n" +
			"Write one manually and start it with: autom8 run <spec.md>")
	case 1:
		return changed[0], nil
	}

	fmt.Println("Several spec files changed:")
	for i, path := range changed {
		fmt.Printf("  %d. %s\n", i+1, path)
	}
	fmt.Print("Which one should run? ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading selection: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(changed) {
		return "", fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
	}
	return changed[n-1], nil
}

// confirm asks a yes/no question on stdin. Anything but y/yes is no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// shortPath renders a path relative to the CWD when that is shorter.
func shortPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && len(rel) < len(path) {
		return rel
	}
	return path
}
