// interactive.go launches the assistant with inherited stdio for the
// spec-creation and improve flows. The child owns the terminal until it
// exits; the engine only learns what happened by re-scanning the spec
// directories afterwards.
package claude

import (
	"fmt"
	"os"
	"os/exec"
)

// RunInteractive spawns the assistant with a single argument carrying the
// initial prompt and stdio inherited from this process. Blocks until the
// session ends.
func RunInteractive(bin, workDir, initialPrompt string) error {
	if bin == "" {
		bin = "claude"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return ErrClaudeNotFound
	}

	cmd := exec.Command(bin, initialPrompt)
	if workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("interactive claude session: %w", err)
	}
	return nil
}
