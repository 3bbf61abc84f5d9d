// Package prompts embeds the markdown prompt templates sent to the
// assistant. Their text is data: the engine never parses it back.
package prompts

import _ "embed"

//go:embed templates/generate_spec.md.tmpl
var GenerateSpecTemplate string

//go:embed templates/fix_spec.md.tmpl
var FixSpecTemplate string

//go:embed templates/implement.md.tmpl
var ImplementTemplate string

//go:embed templates/review.md.tmpl
var ReviewTemplate string

//go:embed templates/correct.md.tmpl
var CorrectTemplate string

//go:embed templates/commit.md.tmpl
var CommitTemplate string

//go:embed templates/create_spec.md
var CreateSpecPrompt string

//go:embed templates/improve_spec.md.tmpl
var ImproveSpecTemplate string

//go:embed templates/pr_review.md.tmpl
var PRReviewTemplate string
