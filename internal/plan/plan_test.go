package plan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func samplePlan() *Plan {
	return &Plan{
		Project:     "demo",
		BranchName:  "feature/demo",
		Description: "A demo feature",
		UserStories: []Story{
			{ID: "s-1", Title: "First", Priority: 1, AcceptanceCriteria: []string{"works"}},
			{ID: "s-2", Title: "Second", Priority: 2},
			{ID: "s-3", Title: "Third", Priority: 3},
		},
	}
}

func TestPlanRoundTrip(t *testing.T) {
	p := samplePlan()
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(p, loaded) {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, p)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	if err := samplePlan().Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "plan.json" {
		t.Errorf("directory contents = %v, want only plan.json", entries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr bool
	}{
		{"valid", func(p *Plan) {}, false},
		{"empty project", func(p *Plan) { p.Project = "" }, true},
		{"no stories", func(p *Plan) { p.UserStories = nil }, true},
		{"empty story id", func(p *Plan) { p.UserStories[1].ID = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlan()
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNextIncompleteStory(t *testing.T) {
	p := samplePlan()
	p.UserStories[0].Priority = 5
	p.UserStories[1].Priority = 2
	p.UserStories[2].Priority = 2

	got := p.NextIncompleteStory()
	if got == nil || got.ID != "s-2" {
		t.Fatalf("NextIncompleteStory() = %v, want s-2 (lowest priority, doc order tie-break)", got)
	}

	p.UserStories[1].Passes = true
	got = p.NextIncompleteStory()
	if got == nil || got.ID != "s-3" {
		t.Errorf("NextIncompleteStory() after s-2 passes = %v, want s-3", got)
	}

	for i := range p.UserStories {
		p.UserStories[i].Passes = true
	}
	if got := p.NextIncompleteStory(); got != nil {
		t.Errorf("NextIncompleteStory() with all complete = %v, want nil", got)
	}
	if !p.AllComplete() {
		t.Errorf("AllComplete() = false, want true")
	}
}

func TestMarkStoryComplete(t *testing.T) {
	p := samplePlan()
	if !p.MarkStoryComplete("s-2") {
		t.Fatalf("MarkStoryComplete(s-2) = false, want true")
	}
	if !p.UserStories[1].Passes {
		t.Errorf("s-2 Passes = false after mark")
	}

	// Idempotent.
	if !p.MarkStoryComplete("s-2") {
		t.Errorf("second MarkStoryComplete(s-2) = false, want true")
	}
	if !p.UserStories[1].Passes {
		t.Errorf("s-2 Passes flipped back")
	}

	// Unknown id is a no-op.
	if p.MarkStoryComplete("nope") {
		t.Errorf("MarkStoryComplete(nope) = true, want false")
	}
}

func TestBranchFallback(t *testing.T) {
	p := samplePlan()
	if got := p.Branch(); got != "feature/demo" {
		t.Errorf("Branch() = %q, want %q", got, "feature/demo")
	}
	p.BranchName = ""
	if got := p.Branch(); got != DefaultBranchName {
		t.Errorf("Branch() = %q, want %q", got, DefaultBranchName)
	}
}

func TestIncomplete(t *testing.T) {
	p := samplePlan()
	p.UserStories[0].Passes = true
	got := p.Incomplete()
	if len(got) != 2 || got[0].ID != "s-2" || got[1].ID != "s-3" {
		t.Errorf("Incomplete() = %v, want [s-2 s-3] in document order", got)
	}
}
