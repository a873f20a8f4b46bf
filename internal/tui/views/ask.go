// Package views provides TUI view components for the pdfqa application.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/tui"
)

// ============================================================================
// Message Types
// ============================================================================

// SubmitQuestionMsg is sent when the user asks a question.
type SubmitQuestionMsg struct {
	Question string
}

// ============================================================================
// AskModel
// ============================================================================

// AskModel is the main screen: document status, question input, answer
// with sources, and the error line.
type AskModel struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	controls   session.Controls
	busy       bool
	busyLabel  string
	doc        *session.Document
	noDocument bool
	answer     string
	sources    []session.Citation
	errText    string
	notice     string

	backendURL   string
	ctrlCPending bool
	width        int
	height       int
}

// NewAskModel creates the ask screen with the given initial controls.
func NewAskModel(backendURL string, controls session.Controls, width, height int) AskModel {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about the document..."
	ti.CharLimit = 2000
	ti.Width = inputWidth(width)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.TitleStyle

	m := AskModel{
		input:      ti,
		viewport:   viewport.New(contentWidth(width), viewportHeight(height)),
		spinner:    sp,
		backendURL: backendURL,
		width:      width,
		height:     height,
	}
	m.setControls(controls)
	m.refresh()
	return m
}

// Init returns the initial command for the ask view.
func (m AskModel) Init() tea.Cmd {
	return textinput.Blink
}

// SetCtrlCPending toggles the exit confirmation hint.
func (m *AskModel) SetCtrlCPending(pending bool) {
	m.ctrlCPending = pending
}

// Controls returns the enablement last reported by the session.
func (m AskModel) Controls() session.Controls {
	return m.controls
}

// Busy reports whether the loading indicator is showing.
func (m AskModel) Busy() bool {
	return m.busy
}

// Question returns the current input text.
func (m AskModel) Question() string {
	return m.input.Value()
}

// CanSubmit reports whether the ask action is enabled: the session permits
// asking and the input holds non-blank text.
func (m AskModel) CanSubmit() bool {
	return m.controls.Ask && strings.TrimSpace(m.input.Value()) != ""
}

// Answer returns the rendered answer text, or "" when hidden.
func (m AskModel) Answer() string {
	return m.answer
}

// ErrorText returns the visible error line.
func (m AskModel) ErrorText() string {
	return m.errText
}

func (m *AskModel) setControls(c session.Controls) {
	m.controls = c
	if c.Question {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// ResetInput empties the question and returns focus to it, leaving ask
// disabled until new text is typed.
func (m *AskModel) ResetInput() {
	m.input.Reset()
	if m.controls.Question {
		m.input.Focus()
	}
}

// Update handles messages for the ask view.
func (m AskModel) Update(msg tea.Msg) (AskModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.Ask):
			if !m.CanSubmit() {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			return m, func() tea.Msg {
				return SubmitQuestionMsg{Question: q}
			}
		case key.Matches(msg, tui.DefaultKeyMap.ScrollUp, tui.DefaultKeyMap.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.controls.Question {
			m.input, cmd = m.input.Update(msg)
		}
		return m, cmd

	case tui.ControlsMsg:
		m.setControls(msg.Controls)
		return m, nil

	case tui.BusyMsg:
		m.busy = msg.Busy
		m.busyLabel = msg.Label
		if m.busy {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd

	case tui.DocumentMsg:
		doc := msg.Document
		m.doc = &doc
		m.noDocument = false
		return m, nil

	case tui.UploadPromptMsg:
		m.doc = nil
		m.noDocument = true
		return m, nil

	case tui.AnswerMsg:
		m.answer = msg.Answer
		m.sources = msg.Sources
		m.refresh()
		m.viewport.GotoTop()
		return m, nil

	case tui.ClearResultsMsg:
		m.answer = ""
		m.sources = nil
		m.errText = ""
		m.refresh()
		return m, nil

	case tui.ErrorMsg:
		m.errText = msg.Text
		m.notice = ""
		return m, nil

	case tui.ClearErrorMsg:
		m.errText = ""
		return m, nil

	case tui.NoticeMsg:
		m.notice = msg.Text
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = inputWidth(msg.Width)
		m.viewport.Width = contentWidth(msg.Width)
		m.viewport.Height = viewportHeight(msg.Height)
		m.refresh()
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the ask view.
func (m AskModel) View() string {
	var b strings.Builder

	// Header
	b.WriteString(tui.TitleStyle.Render("PDF Q&A"))
	if m.backendURL != "" {
		b.WriteString(tui.DimStyle.Render("  " + m.backendURL))
	}
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	// Question input
	if m.controls.Question {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(tui.DimStyle.Render(m.input.View()))
	}
	b.WriteString("\n")

	// Loading, error and notice lines
	switch {
	case m.busy:
		b.WriteString(fmt.Sprintf("\n%s %s\n", m.spinner.View(), m.busyLabel))
	case m.errText != "":
		b.WriteString(fmt.Sprintf("\n%s %s\n", tui.IconError, tui.ErrorStyle.Render(m.errText)))
	case m.notice != "":
		b.WriteString(fmt.Sprintf("\n%s %s\n", tui.IconNotice, tui.NoticeStyle.Render(m.notice)))
	}

	if m.answer != "" {
		b.WriteString("\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render(m.footer()))

	return tui.BoxStyle.
		Width(m.width - 4).
		Render(b.String())
}

func (m AskModel) statusLine() string {
	switch {
	case m.doc != nil:
		return fmt.Sprintf("%s %s", tui.IconReady, tui.SuccessStyle.Render(m.doc.Summary()))
	case m.noDocument:
		return fmt.Sprintf("%s %s", tui.IconWaiting,
			tui.WarningStyle.Render("No document loaded. Press ctrl+o to upload a PDF."))
	default:
		return tui.DimStyle.Render("Checking backend...")
	}
}

func (m AskModel) footer() string {
	if m.ctrlCPending {
		return "Press Ctrl+C again to exit"
	}
	km := tui.DefaultKeyMap
	ask, clr, upload := km.Ask, km.Clear, km.Upload
	ask.SetEnabled(m.CanSubmit())
	clr.SetEnabled(m.controls.Clear)
	upload.SetEnabled(m.controls.Upload)
	return tui.HelpLine(ask, clr, upload, km.SaveKey, km.TestKey, km.CtrlC)
}

// refresh re-renders the answer and sources into the viewport.
func (m *AskModel) refresh() {
	m.viewport.SetContent(RenderResults(m.answer, m.sources, m.viewport.Width))
}

// RenderResults formats an answer followed by its citations at width.
func RenderResults(answer string, sources []session.Citation, width int) string {
	if answer == "" {
		return ""
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(wrap.Render(strings.TrimSpace(answer)))

	if len(sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(tui.TitleStyle.Render(fmt.Sprintf("Sources (%s)", session.SourceCount(len(sources)))))
		for _, src := range sources {
			b.WriteString("\n\n")
			b.WriteString(tui.SourceTitleStyle.Render(src.Title()))
			b.WriteString(tui.DimStyle.Render(fmt.Sprintf("  %s · distance %s", src.Origin, src.Distance)))
			b.WriteString("\n")
			b.WriteString(tui.SourceBodyStyle.Width(width - 3).Render(strings.TrimSpace(src.Text)))
		}
	}
	return b.String()
}

func contentWidth(width int) int {
	if w := width - 8; w > 20 {
		return w
	}
	return 20
}

func inputWidth(width int) int {
	return contentWidth(width) - 2
}

// viewportHeight reserves room for header, status, input, loading and
// footer lines.
func viewportHeight(height int) int {
	if h := height - 16; h > 5 {
		return h
	}
	return 5
}
