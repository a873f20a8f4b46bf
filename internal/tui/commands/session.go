// Package commands provides Bubble Tea commands for TUI operations.
//
// Each command drives the session controller from its own goroutine. The
// controller reports progress through the program view; the command's own
// result is an OpDoneMsg.
package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/tui"
)

// Operation names carried by OpDoneMsg.
const (
	OpStatus  = "status"
	OpUpload  = "upload"
	OpAsk     = "ask"
	OpClear   = "clear"
	OpSaveKey = "save-key"
	OpTestKey = "test-key"
)

// CheckStatusCmd queries the backend for a loaded document.
func CheckStatusCmd(ctx context.Context, c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		_, err := c.CheckStatus(ctx)
		return tui.OpDoneMsg{Op: OpStatus, Err: err}
	}
}

// UploadCmd uploads the file at path.
func UploadCmd(ctx context.Context, c *session.Controller, path string) tea.Cmd {
	return func() tea.Msg {
		_, err := c.UploadPath(ctx, ExpandPath(path))
		return tui.OpDoneMsg{Op: OpUpload, Err: err}
	}
}

// AskCmd sends a question.
func AskCmd(ctx context.Context, c *session.Controller, question string) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Ask(ctx, question)
		return tui.OpDoneMsg{Op: OpAsk, Err: err}
	}
}

// ClearCmd hides the current results.
func ClearCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return tui.OpDoneMsg{Op: OpClear, Err: c.Clear()}
	}
}

// SaveKeyCmd stores a new API key.
func SaveKeyCmd(c *session.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		return tui.OpDoneMsg{Op: OpSaveKey, Err: c.SaveCredential(key)}
	}
}

// TestKeyCmd validates an API key against the backend.
func TestKeyCmd(ctx context.Context, c *session.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		return tui.OpDoneMsg{Op: OpTestKey, Err: c.TestCredential(ctx, key)}
	}
}

// InspectCmd previews the file at path. It produces no message when the
// file cannot be read.
func InspectCmd(path string) tea.Cmd {
	return func() tea.Msg {
		path = ExpandPath(path)
		st, err := os.Stat(path)
		if err != nil || st.IsDir() {
			return nil
		}
		return tui.FileInfoMsg{Info: session.Inspect(path, st.Size())}
	}
}

// ExpandPath trims whitespace and surrounding quotes (as left by dragging a
// file into a terminal) and expands a leading ~.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"'`)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
