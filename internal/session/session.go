// Package session tracks the working directories a project runs in. One
// session owns one checkout: the distinguished "main" session is the
// main working directory, every other session is a linked worktree. The
// registry discovers sessions from the per-project config directory and
// classifies them for the operator commands.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MainSessionID is the distinguished id of the main working directory.
const MainSessionID = "main"

// Metadata describes one session, persisted as metadata.json inside its
// session state directory.
type Metadata struct {
	SessionID      string    `json:"session_id"`
	WorktreePath   string    `json:"worktree_path"`
	BranchName     string    `json:"branch_name"`
	CreatedAt      time.Time `json:"created_at"`
	LastActiveAt   time.Time `json:"last_active_at"`
	IsRunning      bool      `json:"is_running"`
	PauseRequested bool      `json:"pause_requested"`
}

// IsMain reports whether this is the main working directory's session.
func (m *Metadata) IsMain() bool { return m.SessionID == MainSessionID }

// NewSessionID mints an id for a linked-worktree session.
func NewSessionID() string {
	return "s-" + strings.Split(uuid.New().String(), "-")[0]
}
