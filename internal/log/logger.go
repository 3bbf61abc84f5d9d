// Package log appends structured run events to events.jsonl inside a
// session directory. The event log is a diagnostic view over the run
// state, consumed by describe and the monitor; losing a write is never
// fatal to the run.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventRunStarted        = "run_started"
	EventStateEntered      = "state_entered"
	EventIterationStarted  = "iteration_started"
	EventIterationFinished = "iteration_finished"
	EventClaudeSpawned     = "claude_spawned"
	EventClaudeExited      = "claude_exited"
	EventReviewPassed      = "review_passed"
	EventReviewIssues      = "review_issues"
	EventCommitCreated     = "commit_created"
	EventPRCreated         = "pr_created"
	EventPRSkipped         = "pr_skipped"
	EventRunInterrupted    = "run_interrupted"
	EventRunCompleted      = "run_completed"
	EventRunFailed         = "run_failed"
)

// Event is a single structured line in events.jsonl.
type Event struct {
	Time    time.Time `json:"time"`
	Event   string    `json:"event"`
	RunID   string    `json:"run_id,omitempty"`
	StoryID string    `json:"story_id,omitempty"`
	State   string    `json:"state,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

const logFile = "events.jsonl"

// Logger writes append-only JSONL events into one session directory.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger for the given session directory, creating
// the directory if needed. An existing log is never truncated.
func NewLogger(sessionDir string) (*Logger, error) {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Logger{path: filepath.Join(sessionDir, logFile)}, nil
}

// Append writes one event as a JSON line. A zero Time is set to now.
func (l *Logger) Append(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// ReadAll reads every parseable event. A missing file yields an empty
// slice, not an error; malformed lines are skipped.
func (l *Logger) ReadAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return events, nil
}

// Tail returns the last n events.
func (l *Logger) Tail(n int) ([]Event, error) {
	events, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}
