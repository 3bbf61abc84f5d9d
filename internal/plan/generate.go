// generate.go converts a user-authored markdown spec into a structured
// plan by prompting the assistant, with an agentic-plus-mechanical retry
// ladder for malformed output.
package plan

import (
	"errors"
	"fmt"
	"os"

	"github.com/louisboilard/autom8/internal/claude"
)

// maxAgenticAttempts bounds how many times the assistant is asked before
// the mechanical repair pass runs.
const maxAgenticAttempts = 3

// previewLimit bounds the malformed-output preview embedded in errors.
const previewLimit = 400

// GenError is returned when the whole retry ladder is exhausted: the last
// agentic parse error, the mechanical repair parse error, and a truncated
// preview of the final attempt.
type GenError struct {
	AgenticErr error
	RepairErr  error
	Preview    string
}

// Error implements the error interface.
func (e *GenError) Error() string {
	return fmt.Sprintf("spec generation failed after %d attempts: %v; mechanical repair: %v\nlast output preview:\n%s",
		maxAgenticAttempts, e.AgenticErr, e.RepairErr, e.Preview)
}

// Generator drives the markdown-to-plan conversion.
type Generator struct {
	Runner  claude.Runner
	WorkDir string
}

// Generate converts markdown into a validated plan, saves it to outPath,
// and returns it. The ladder: up to three agentic attempts (the second
// and third carry a correction prompt embedding the malformed output and
// the parser error), then one conservative mechanical repair pass, then
// failure with a GenError.
func (g *Generator) Generate(markdown, outPath string) (*Plan, error) {
	var lastRaw string
	var lastErr error

	for attempt := 1; attempt <= maxAgenticAttempts; attempt++ {
		var prompt string
		if attempt == 1 {
			prompt = BuildGeneratePrompt(markdown, outPath)
		} else {
			prompt = BuildFixPrompt(markdown, lastRaw, lastErr.Error())
		}

		res, err := g.Runner.Run(claude.RunOptions{Prompt: prompt, WorkDir: g.WorkDir})
		if err != nil {
			return nil, err
		}
		if res.Outcome == claude.Failed {
			lastRaw = res.Text
			lastErr = res.Failure
			continue
		}

		raw, exErr := ExtractJSON(res.Text)
		if exErr != nil {
			// The assistant may have written the plan file directly via
			// its tools instead of echoing it; fall back to disk.
			if data, readErr := os.ReadFile(outPath); readErr == nil && len(data) > 0 {
				raw = string(data)
			} else {
				lastRaw = res.Text
				lastErr = exErr
				continue
			}
		}

		p, parseErr := Parse([]byte(raw))
		if parseErr == nil {
			if err := p.Save(outPath); err != nil {
				return nil, err
			}
			return p, nil
		}
		lastRaw = raw
		lastErr = parseErr
	}

	// Mechanical repair: one pass, conservative.
	repaired := Repair(lastRaw)
	p, repairErr := Parse([]byte(repaired))
	if repairErr == nil {
		if err := p.Save(outPath); err != nil {
			return nil, err
		}
		return p, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no output produced")
	}
	return nil, &GenError{
		AgenticErr: lastErr,
		RepairErr:  repairErr,
		Preview:    truncatePreview(lastRaw),
	}
}

// truncatePreview bounds s for inclusion in error messages.
func truncatePreview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "... (truncated)"
}
