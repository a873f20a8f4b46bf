package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/tui"
)

// PromptSubmitMsg carries the text entered in a prompt.
type PromptSubmitMsg struct {
	Mode  tui.Mode
	Value string
}

// PromptCancelMsg signals that the prompt was dismissed.
type PromptCancelMsg struct{}

// PathChangedMsg is sent when the upload path input settles on a new value,
// so the app can preview the file.
type PathChangedMsg struct {
	Path string
}

// PromptModel is a single-line input for a file path or an API key.
type PromptModel struct {
	mode   tui.Mode
	input  textinput.Model
	info   *session.FileInfo
	width  int
	height int
}

// NewPromptModel creates a prompt for mode, optionally prefilled.
func NewPromptModel(mode tui.Mode, initial string, width, height int) PromptModel {
	ti := textinput.New()
	ti.CharLimit = 4096
	ti.Width = inputWidth(width)
	switch mode {
	case tui.ModeUpload:
		ti.Placeholder = "/path/to/document.pdf"
	default:
		ti.Placeholder = "API key"
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.SetValue(initial)
	ti.Focus()

	return PromptModel{
		mode:   mode,
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command for the prompt.
func (m PromptModel) Init() tea.Cmd {
	return textinput.Blink
}

// Mode returns what the prompt collects.
func (m PromptModel) Mode() tui.Mode {
	return m.mode
}

// Update handles messages for the prompt.
func (m PromptModel) Update(msg tea.Msg) (PromptModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.Submit):
			mode, value := m.mode, m.input.Value()
			return m, func() tea.Msg {
				return PromptSubmitMsg{Mode: mode, Value: value}
			}
		case key.Matches(msg, tui.DefaultKeyMap.Escape):
			return m, func() tea.Msg {
				return PromptCancelMsg{}
			}
		}

		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if m.mode == tui.ModeUpload && m.input.Value() != before {
			m.info = nil
			path := m.input.Value()
			if strings.HasSuffix(strings.ToLower(strings.TrimSpace(path)), ".pdf") {
				return m, tea.Batch(cmd, func() tea.Msg { return PathChangedMsg{Path: path} })
			}
		}
		return m, cmd

	case tui.FileInfoMsg:
		info := msg.Info
		m.info = &info
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = inputWidth(msg.Width)
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt.
func (m PromptModel) View() string {
	var b strings.Builder

	switch m.mode {
	case tui.ModeUpload:
		b.WriteString(tui.TitleStyle.Render("Upload a PDF"))
	case tui.ModeTestKey:
		b.WriteString(tui.TitleStyle.Render("Test API key"))
	default:
		b.WriteString(tui.TitleStyle.Render("Save API key"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.info != nil {
		b.WriteString("\n")
		b.WriteString(tui.DimStyle.Render(m.info.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render(fmt.Sprintf("Enter: %s · Esc: Cancel", submitLabel(m.mode))))

	return tui.BoxStyle.
		Width(m.width - 4).
		Render(b.String())
}

func submitLabel(mode tui.Mode) string {
	switch mode {
	case tui.ModeUpload:
		return "Upload"
	case tui.ModeTestKey:
		return "Test"
	default:
		return "Save"
	}
}
