// extract.go pulls structured JSON out of free-form assistant output.
package plan

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")
	anyFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)\\n\\s*```")
)

// ExtractJSON searches text for structured content using three strategies
// in order: a fenced block tagged json, any fenced block, and finally the
// substring from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(text[start : end+1]), nil
	}

	return "", fmt.Errorf("no JSON content found in output")
}
