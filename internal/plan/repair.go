// repair.go implements the conservative mechanical repair pass applied
// after the agentic retries are exhausted. Each fix is idempotent and
// never guesses structural intent: stripping fence delimiters, quoting
// bare identifier keys, and dropping separators that immediately precede
// a closing delimiter.
package plan

import (
	"regexp"
	"strings"
)

var (
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// Repair applies the mechanical repair catalog to s and returns the
// result. Applying Repair to its own output is a no-op.
func Repair(s string) string {
	s = stripFences(s)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = trailingCommaRe.ReplaceAllString(s, `$1`)
	return s
}

// stripFences removes a single outer fenced-block wrapper if present.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return s
	}
	// Drop the opening fence line and, if present, the closing one.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
