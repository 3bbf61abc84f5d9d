// Package plan defines the structured plan driving a run: the project, its
// branch, and an ordered list of user stories with pass flags. The plan
// file on disk is shared with the assistant subprocess, which flips the
// pass flags as it completes stories; the engine only ever reads it.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultBranchName is used when a generated plan does not name a branch.
const DefaultBranchName = "autom8/feature"

// Plan is the structured representation of a feature specification.
type Plan struct {
	Project     string  `json:"project"`
	BranchName  string  `json:"branch_name"`
	Description string  `json:"description"`
	UserStories []Story `json:"user_stories"`
}

// Story is a unit of work inside a plan. Lower Priority means the story
// is implemented earlier. Passes is set by the assistant, never by us.
type Story struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Priority           int      `json:"priority"`
	Passes             bool     `json:"passes"`
	Notes              string   `json:"notes,omitempty"`
}

// Parse deserializes a structured plan and validates it.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}
	return Parse(data)
}

// Save serializes the plan to path via write-to-temp-then-rename so the
// assistant never observes a partial file.
func (p *Plan) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling plan: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating plan directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming plan: %w", err)
	}
	return nil
}

// Validate checks the plan invariants: non-empty project, non-empty story
// list, every story id non-empty.
func (p *Plan) Validate() error {
	if p.Project == "" {
		return fmt.Errorf("invalid plan: project is empty")
	}
	if len(p.UserStories) == 0 {
		return fmt.Errorf("invalid plan: no user stories")
	}
	for i, s := range p.UserStories {
		if s.ID == "" {
			return fmt.Errorf("invalid plan: story %d has empty id", i)
		}
	}
	return nil
}

// Branch returns the plan's branch name, falling back to the default
// placeholder when unspecified.
func (p *Plan) Branch() string {
	if p.BranchName == "" {
		return DefaultBranchName
	}
	return p.BranchName
}

// NextIncompleteStory returns the incomplete story with the lowest
// priority value. Ties are broken by document order. Returns nil when
// every story passes.
func (p *Plan) NextIncompleteStory() *Story {
	var best *Story
	for i := range p.UserStories {
		s := &p.UserStories[i]
		if s.Passes {
			continue
		}
		if best == nil || s.Priority < best.Priority {
			best = s
		}
	}
	return best
}

// AllComplete reports whether every story passes.
func (p *Plan) AllComplete() bool {
	return p.NextIncompleteStory() == nil
}

// MarkStoryComplete sets the pass flag on the story with the given id.
// Idempotent; an unknown id is a no-op. Reports whether a story matched.
func (p *Plan) MarkStoryComplete(id string) bool {
	for i := range p.UserStories {
		if p.UserStories[i].ID == id {
			p.UserStories[i].Passes = true
			return true
		}
	}
	return false
}

// Incomplete returns the stories that do not pass yet, in document order.
func (p *Plan) Incomplete() []Story {
	var out []Story
	for _, s := range p.UserStories {
		if !s.Passes {
			out = append(out, s)
		}
	}
	return out
}
