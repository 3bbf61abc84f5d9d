// prompt.go renders the spec-generation prompt templates.
package plan

import (
	"strings"
	"text/template"

	"github.com/louisboilard/autom8/prompts"
)

var (
	generateTmpl = template.Must(template.New("generate").Parse(prompts.GenerateSpecTemplate))
	fixTmpl      = template.Must(template.New("fix").Parse(prompts.FixSpecTemplate))
)

// generateParams feeds the generate-spec template.
type generateParams struct {
	Markdown string
	OutPath  string
}

// fixParams feeds the correction template. MalformedOutput is embedded
// verbatim, never inside a fence, so the assistant does not echo the
// fence style that caused the problem.
type fixParams struct {
	Markdown        string
	MalformedOutput string
	ParserError     string
}

// BuildGeneratePrompt renders the first-attempt prompt embedding the
// user's markdown spec.
func BuildGeneratePrompt(markdown, outPath string) string {
	var b strings.Builder
	_ = generateTmpl.Execute(&b, generateParams{Markdown: markdown, OutPath: outPath})
	return b.String()
}

// BuildFixPrompt renders the correction prompt for retry attempts.
func BuildFixPrompt(markdown, malformed, parserError string) string {
	var b strings.Builder
	_ = fixTmpl.Execute(&b, fixParams{
		Markdown:        markdown,
		MalformedOutput: malformed,
		ParserError:     parserError,
	})
	return b.String()
}
