// Package tui contains the Bubble Tea surfaces: the monitor dashboard
// and the resume session picker. Both are read-only views; they never
// write session state.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"github.com/louisboilard/autom8/internal/config"
	"github.com/louisboilard/autom8/internal/history"
	"github.com/louisboilard/autom8/internal/log"
	"github.com/louisboilard/autom8/internal/session"
	"github.com/louisboilard/autom8/internal/state"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	staleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// monitorSnapshot is one read-only view of the project's sessions and
// recent events, rebuilt on every refresh.
type monitorSnapshot struct {
	Sessions []session.Info
	Events   []log.Event
	History  []history.RunRow
	Err      error
}

type tickMsg time.Time
type fsEventMsg struct{}
type snapshotMsg monitorSnapshot

// monitorModel is the Bubble Tea model for `autom8 monitor`.
type monitorModel struct {
	project  string
	registry *session.Registry
	interval time.Duration

	watcher *fsnotify.Watcher
	fsCh    chan struct{}

	snap monitorSnapshot
}

// NewMonitor builds the monitor program for a project. refreshSeconds
// sets the ticker fallback; an fsnotify watcher on the session
// directories triggers immediate reloads when available.
func NewMonitor(project string, reg *session.Registry, refreshSeconds int) *tea.Program {
	if refreshSeconds <= 0 {
		refreshSeconds = 2
	}
	m := monitorModel{
		project:  project,
		registry: reg,
		interval: time.Duration(refreshSeconds) * time.Second,
		fsCh:     make(chan struct{}, 1),
	}
	m.watcher = m.startWatcher()
	return tea.NewProgram(m, tea.WithAltScreen())
}

// Init implements tea.Model.
func (m monitorModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSnapshot, m.tick()}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForFsEvent)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.watcher != nil {
				_ = m.watcher.Close()
			}
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.loadSnapshot, m.tick())
	case fsEventMsg:
		return m, tea.Batch(m.loadSnapshot, m.waitForFsEvent)
	case snapshotMsg:
		m.snap = monitorSnapshot(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m monitorModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("autom8 monitor: "+m.project))

	if m.snap.Err != nil {
		fmt.Fprintf(&b, "error: %v\n", m.snap.Err)
		return b.String()
	}

	b.WriteString(RenderSessions(m.snap.Sessions))

	active := activeRun(m.snap.Sessions)
	if active != nil {
		b.WriteString("\n")
		b.WriteString(RenderRun(active))
	}

	if len(m.snap.Events) > 0 {
		fmt.Fprintf(&b, "\n%s\n", headerStyle.Render("Recent events"))
		for _, ev := range m.snap.Events {
			detail := ev.Detail
			if detail != "" {
				detail = " " + detail
			}
			fmt.Fprintf(&b, "  %s %s%s\n",
				dimStyle.Render(ev.Time.Local().Format("15:04:05")), ev.Event, detail)
		}
	}

	if len(m.snap.History) > 0 {
		fmt.Fprintf(&b, "\n%s\n", headerStyle.Render("Recent runs"))
		for _, r := range m.snap.History {
			fmt.Fprintf(&b, "  %-10s %-10s %2d iters  $%.2f  %s\n",
				r.RunID[:8], r.Status, r.Iterations, r.CostUSD,
				dimStyle.Render(r.StartedAt.Local().Format("Jan 2 15:04")))
		}
	}

	fmt.Fprintf(&b, "\n%s\n", dimStyle.Render("q to quit"))
	return b.String()
}

// loadSnapshot rebuilds the read-only view from disk.
func (m monitorModel) loadSnapshot() tea.Msg {
	var snap monitorSnapshot
	sessions, err := m.registry.List()
	if err != nil {
		snap.Err = err
		return snapshotMsg(snap)
	}
	snap.Sessions = sessions

	if active := activeRun(sessions); active != nil {
		for _, info := range sessions {
			if info.RunState == active {
				if logger, err := log.NewLogger(info.SessionDir); err == nil {
					snap.Events, _ = logger.Tail(8)
				}
			}
		}
	}

	// Recent terminal runs from the history store; absence is fine.
	if dbPath, err := config.HistoryDBPath(); err == nil {
		if store, err := history.Open(dbPath); err == nil {
			snap.History, _ = store.ListRuns(m.project, 5)
			_ = store.Close()
		}
	}
	return snapshotMsg(snap)
}

func (m monitorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// startWatcher watches every session state directory. fsnotify being
// unavailable just means the ticker does all the work.
func (m monitorModel) startWatcher() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	infos, err := m.registry.List()
	if err != nil {
		_ = watcher.Close()
		return nil
	}
	for _, info := range infos {
		_ = watcher.Add(info.SessionDir)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Only state and event files matter for the view.
				name := filepath.Base(ev.Name)
				if name == "state.json" || name == "metadata.json" || name == "events.jsonl" {
					select {
					case m.fsCh <- struct{}{}:
					default:
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher
}

func (m monitorModel) waitForFsEvent() tea.Msg {
	<-m.fsCh
	return fsEventMsg{}
}

// activeRun returns the first non-terminal run state across sessions.
func activeRun(infos []session.Info) *state.RunState {
	for _, info := range infos {
		if info.RunState != nil && !info.RunState.Terminal() {
			return info.RunState
		}
	}
	return nil
}

// RenderSessions renders the session table. Shared with the non-TTY
// one-shot print in the monitor and status commands.
func RenderSessions(infos []session.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("Sessions"))
	if len(infos) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}

	sorted := append([]session.Info(nil), infos...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Metadata.SessionID < sorted[j].Metadata.SessionID
	})

	for _, info := range sorted {
		class := info.Class.String()
		switch info.Class {
		case session.ClassCurrent:
			class = currentStyle.Render(class)
		case session.ClassStale:
			class = staleStyle.Render(class)
		}
		fmt.Fprintf(&b, "  %-10s %-10s %-24s %s\n",
			info.Metadata.SessionID, class, info.Metadata.BranchName,
			dimStyle.Render(info.Metadata.WorktreePath))
	}
	return b.String()
}

// RenderRun renders the active run panel.
func RenderRun(rs *state.RunState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("Active run"))
	fmt.Fprintf(&b, "  run      %s\n", rs.RunID)
	fmt.Fprintf(&b, "  status   %s\n", rs.Status)
	fmt.Fprintf(&b, "  state    %s\n", stateStyle.Render(string(rs.MachineState)))
	if rs.Branch != "" {
		fmt.Fprintf(&b, "  branch   %s\n", rs.Branch)
	}
	if rs.CurrentStory != "" {
		fmt.Fprintf(&b, "  story    %s\n", rs.CurrentStory)
	}
	fmt.Fprintf(&b, "  iters    %d\n", rs.Iteration)
	if rs.Usage != nil {
		fmt.Fprintf(&b, "  usage    %d in / %d out tokens, $%.4f\n",
			rs.Usage.InputTokens, rs.Usage.OutputTokens, rs.Usage.CostUSD)
	}
	return b.String()
}
