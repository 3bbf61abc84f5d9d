package log

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}

	events := []Event{
		{Event: EventRunStarted, RunID: "r-1"},
		{Event: EventStateEntered, RunID: "r-1", State: "picking_story"},
		{Event: EventIterationStarted, RunID: "r-1", StoryID: "s-1", Detail: "iteration 1"},
	}
	for _, ev := range events {
		if err := logger.Append(ev); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	got, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadAll() count = %d, want 3", len(got))
	}
	if got[1].State != "picking_story" {
		t.Errorf("events[1].State = %q, want %q", got[1].State, "picking_story")
	}
	if got[2].StoryID != "s-1" {
		t.Errorf("events[2].StoryID = %q, want %q", got[2].StoryID, "s-1")
	}
	for i, ev := range got {
		if ev.Time.IsZero() {
			t.Errorf("events[%d].Time is zero, want set on append", i)
		}
	}
}

func TestReadAllMissingFile(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	events, err := logger.ReadAll()
	if err != nil {
		t.Errorf("ReadAll() error = %v, want nil", err)
	}
	if len(events) != 0 {
		t.Errorf("ReadAll() = %v, want empty", events)
	}
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	if err := logger.Append(Event{Event: EventRunStarted}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	if err := logger.Append(Event{Event: EventRunCompleted}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	events, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("ReadAll() count = %d, want 2 (malformed line skipped)", len(events))
	}
}

func TestTail(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := logger.Append(Event{Event: EventStateEntered, Detail: string(rune('a' + i))}); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	got, err := logger.Tail(2)
	if err != nil {
		t.Fatalf("Tail() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tail(2) count = %d, want 2", len(got))
	}
	if got[0].Detail != "d" || got[1].Detail != "e" {
		t.Errorf("Tail(2) = %v %v, want the last two events", got[0].Detail, got[1].Detail)
	}
}
