// Package ui renders plain terminal output for the operator commands:
// phase lines, a spinner when stdout is a terminal, and relative
// timestamps. The engine never depends on this package; everything here
// is a view over run state and registry snapshots.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

var (
	phaseStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Phase prints a bold phase header.
func Phase(w io.Writer, name string) {
	fmt.Fprintf(w, "%s\n", phaseStyle.Render("==> "+name))
}

// Success prints a green confirmation line.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s\n", successStyle.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints a red error line.
func Errorf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s\n", errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow warning line.
func Warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s\n", warnStyle.Render(fmt.Sprintf(format, args...)))
}

// Dim renders secondary text.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// RelTime renders a timestamp like "3 minutes ago". Zero times render as
// a dash.
func RelTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Spinner animates a progress indicator on a terminal. On a non-TTY
// writer it prints the message once and stays silent.
type Spinner struct {
	w       io.Writer
	message string
	tty     bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{w: w, message: message, tty: IsTTY(w)}
}

// Start begins animating. No-op on a second call.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	if !s.tty {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.spin(s.stop, s.done)
}

// SetMessage updates the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Spinner) spin(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-stop:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r\033[K%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)
			frame++
		}
	}
}
