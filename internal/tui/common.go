// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the TUI program with the given model. attach, when non-nil,
// receives the program before it starts so background work can Send to it.
// If stdout is not a TTY, it prints guidance for the one-shot commands
// instead.
func Run(m tea.Model, attach func(*tea.Program)) error {
	if !IsTTY() {
		return Fallback(os.Stdout)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if attach != nil {
		attach(p)
	}
	_, err := p.Run()
	return err
}
