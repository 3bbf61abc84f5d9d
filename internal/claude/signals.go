// signals.go extracts the out-of-band signals the assistant embeds in its
// streamed text: the completion marker, the work summary, and the
// optional context tags.
package claude

import (
	"strings"
)

// CompletionMarker is the literal token whose appearance means every
// story in the plan is complete.
const CompletionMarker = "<promise>COMPLETE</promise>"

// maxWorkSummaryLen bounds the stored work summary.
const maxWorkSummaryLen = 500

// HasCompletionMarker reports whether the accumulated text contains the
// completion marker anywhere. Substring-based by contract with the
// assistant prompt.
func HasCompletionMarker(text string) bool {
	return strings.Contains(text, CompletionMarker)
}

// ExtractWorkSummary returns the text bracketed by <work-summary> tags,
// trimmed and truncated at a word boundary to at most 500 characters.
// Absence of the tags is normal and returns ok=false.
func ExtractWorkSummary(text string) (summary string, ok bool) {
	const open, close = "<work-summary>", "</work-summary>"

	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}

	s := strings.TrimSpace(rest[:end])
	if len(s) <= maxWorkSummaryLen {
		return s, true
	}

	cut := s[:maxWorkSummaryLen-1]
	if i := strings.LastIndexAny(cut, " \t\n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\n") + "…", true
}

// FileContext is one annotated file from a <files-context> tag.
type FileContext struct {
	Path string
	Note string
}

// Decision is one recorded decision from a <decisions> tag.
type Decision struct {
	Subject string
	Detail  string
}

// Pattern is one observed pattern from a <patterns> tag.
type Pattern struct {
	Name  string
	Where string
}

// ContextTags holds the optional structured annotations the assistant
// may emit. Each field is silently empty when its tag is absent or
// malformed.
type ContextTags struct {
	Files     []FileContext
	Decisions []Decision
	Patterns  []Pattern
}

// ParseContextTags extracts all context tags from text.
func ParseContextTags(text string) ContextTags {
	var tags ContextTags
	for _, line := range tagLines(text, "files-context") {
		path, note := splitPipe(line)
		if path != "" {
			tags.Files = append(tags.Files, FileContext{Path: path, Note: note})
		}
	}
	for _, line := range tagLines(text, "decisions") {
		subject, detail := splitPipe(line)
		if subject != "" {
			tags.Decisions = append(tags.Decisions, Decision{Subject: subject, Detail: detail})
		}
	}
	for _, line := range tagLines(text, "patterns") {
		name, where := splitPipe(line)
		if name != "" {
			tags.Patterns = append(tags.Patterns, Pattern{Name: name, Where: where})
		}
	}
	return tags
}

// tagLines returns the non-empty lines inside <tag>...</tag>, or nil.
func tagLines(text, tag string) []string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"

	start := strings.Index(text, open)
	if start < 0 {
		return nil
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(rest[:end], "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// splitPipe splits a pipe-delimited line into its first field and the
// remainder, both trimmed.
func splitPipe(line string) (string, string) {
	parts := strings.SplitN(line, "|", 2)
	first := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return first, ""
	}
	return first, strings.TrimSpace(parts[1])
}

// ReportsNothingToCommit scans the accumulated text case-insensitively
// for the commit-mode sentinel phrase.
func ReportsNothingToCommit(text string) bool {
	return strings.Contains(strings.ToLower(text), "nothing to commit")
}
