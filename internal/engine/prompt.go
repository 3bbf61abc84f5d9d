// prompt.go renders the per-state prompts from the embedded templates.
package engine

import (
	"strings"
	"text/template"

	"github.com/louisboilard/autom8/internal/plan"
	"github.com/louisboilard/autom8/prompts"
)

var (
	implementTmpl = template.Must(template.New("implement").Parse(prompts.ImplementTemplate))
	reviewTmpl    = template.Must(template.New("review").Parse(prompts.ReviewTemplate))
	correctTmpl   = template.Must(template.New("correct").Parse(prompts.CorrectTemplate))
	commitTmpl    = template.Must(template.New("commit").Parse(prompts.CommitTemplate))
)

type implementParams struct {
	PlanPath  string
	Story     *plan.Story
	Iteration int
}

func buildImplementPrompt(planPath string, story *plan.Story, iteration int) string {
	var b strings.Builder
	_ = implementTmpl.Execute(&b, implementParams{
		PlanPath:  planPath,
		Story:     story,
		Iteration: iteration,
	})
	return b.String()
}

func buildReviewPrompt(planPath string) string {
	var b strings.Builder
	_ = reviewTmpl.Execute(&b, struct{ PlanPath string }{planPath})
	return b.String()
}

func buildCorrectPrompt(reviewIteration int) string {
	var b strings.Builder
	_ = correctTmpl.Execute(&b, struct{ ReviewIteration int }{reviewIteration})
	return b.String()
}

func buildCommitPrompt(project, prefix string) string {
	var b strings.Builder
	_ = commitTmpl.Execute(&b, struct{ Project, Prefix string }{project, prefix})
	return b.String()
}
