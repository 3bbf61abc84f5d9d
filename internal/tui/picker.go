// picker.go is the interactive session picker shown when resume finds
// more than one candidate on a terminal.
package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/louisboilard/autom8/internal/session"
	"github.com/louisboilard/autom8/internal/ui"
)

// sessionItem adapts a session.Info for the bubbles list.
type sessionItem struct {
	info session.Info
}

// FilterValue implements list.Item.
func (i sessionItem) FilterValue() string { return i.info.Metadata.SessionID }

// Title implements list.DefaultItem.
func (i sessionItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.info.Metadata.SessionID, i.info.Metadata.BranchName)
}

// Description implements list.DefaultItem.
func (i sessionItem) Description() string {
	desc := i.info.Metadata.WorktreePath
	if rs := i.info.RunState; rs != nil {
		desc = fmt.Sprintf("%s at %s, last active %s",
			rs.Status, rs.MachineState, ui.RelTime(i.info.Metadata.LastActiveAt))
	}
	return desc
}

type pickerModel struct {
	list   list.Model
	choice *session.Info
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				m.choice = &item.info
			}
			return m, tea.Quit
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m pickerModel) View() string { return m.list.View() }

// PickSession presents candidates in a list and returns the chosen one.
// Returns nil when the user cancels.
func PickSession(candidates []session.Info) (*session.Info, error) {
	items := make([]list.Item, len(candidates))
	for i, info := range candidates {
		items[i] = sessionItem{info: info}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Resume which session?"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	final, err := tea.NewProgram(pickerModel{list: l}, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("session picker: %w", err)
	}
	if m, ok := final.(pickerModel); ok {
		return m.choice, nil
	}
	return nil, nil
}

// PrintSessionList is the non-TTY fallback: a numbered plain listing.
func PrintSessionList(w io.Writer, candidates []session.Info) {
	for i, info := range candidates {
		state := ""
		if info.RunState != nil {
			state = fmt.Sprintf(" (%s at %s)", info.RunState.Status, info.RunState.MachineState)
		}
		fmt.Fprintf(w, "  %d. %s on %s%s\n",
			i+1, info.Metadata.SessionID, info.Metadata.BranchName, state)
	}
}
