// driver.go spawns the assistant CLI and classifies its exit.
package claude

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ErrClaudeNotFound is returned when the assistant executable is not in
// PATH.
var ErrClaudeNotFound = errors.New("claude not found in PATH")

// stderrTailLimit bounds how much captured stderr ends up in ExitError.
const stderrTailLimit = 4 * 1024

// CLIRunner is the production Runner: it invokes the `claude` executable
// in non-interactive single-shot mode with stream-json output.
type CLIRunner struct {
	Bin          string // executable name, default "claude"
	Model        string
	AllowedTools string
	// BypassPermissions selects --dangerously-skip-permissions. When
	// false the run is permission-mediated and RunOptions.Mediator
	// answers control requests.
	BypassPermissions bool
	// Stderr receives the child's stderr in addition to the captured
	// tail. Defaults to os.Stderr.
	Stderr io.Writer
}

// Run implements Runner. It spawns one child, writes the prompt to its
// stdin, consumes the event stream, and waits for exit. A non-zero exit
// is returned as Outcome Failed, not as an error.
func (r *CLIRunner) Run(opts RunOptions) (*Result, error) {
	bin := r.Bin
	if bin == "" {
		bin = "claude"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, ErrClaudeNotFound
	}

	cmd := exec.Command(bin, r.buildArgs()...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}

	tail := &tailBuffer{limit: stderrTailLimit}
	errSink := r.Stderr
	if errSink == nil {
		errSink = os.Stderr
	}
	cmd.Stderr = io.MultiWriter(errSink, tail)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", bin, err)
	}

	// Write the prompt first. In bypass mode stdin is then closed to
	// signal EOF; in mediated mode it stays open so control responses
	// can be written, and closes when the stream ends.
	if _, err := io.WriteString(stdin, opts.Prompt); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return nil, fmt.Errorf("writing prompt: %w", err)
	}
	var responseWriter io.Writer
	if r.BypassPermissions || opts.Mediator == nil {
		_ = stdin.Close()
	} else {
		_, _ = io.WriteString(stdin, "\n")
		responseWriter = &syncWriter{w: stdin}
		defer func() { _ = stdin.Close() }()
	}

	stream, streamErr := consumeStream(stdout, responseWriter, opts.OnOutput, opts.Mediator)

	waitErr := cmd.Wait()
	if streamErr != nil {
		return nil, streamErr
	}

	res := &Result{Usage: stream.Usage}
	res.Text = stream.Text
	if summary, ok := ExtractWorkSummary(stream.Text); ok {
		res.WorkSummary = summary
	}
	res.Tags = ParseContextTags(stream.Text)

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		res.Outcome = Failed
		res.Failure = &ExitError{ExitCode: code, StderrTail: tail.String()}
		return res, nil
	}

	if HasCompletionMarker(stream.Text) {
		res.Outcome = AllStoriesComplete
	} else {
		res.Outcome = Success
	}
	return res, nil
}

// buildArgs constructs the CLI argument slice for a single-shot run.
func (r *CLIRunner) buildArgs() []string {
	args := []string{
		"--print",
		"--verbose",
		"--output-format", "stream-json",
	}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	if r.AllowedTools != "" {
		args = append(args, "--allowedTools", r.AllowedTools)
	}
	if r.BypassPermissions {
		args = append(args, "--dangerously-skip-permissions")
	} else {
		args = append(args, "--permission-mode", "default")
	}
	return args
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

// Write implements io.Writer.
func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

// String returns the retained tail.
func (t *tailBuffer) String() string { return string(t.buf) }

// syncWriter serializes control-response writes against prompt writes.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Write implements io.Writer.
func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
