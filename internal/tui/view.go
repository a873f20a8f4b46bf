package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdfqa-dev/pdfqa/internal/session"
)

// Sender is the part of *tea.Program that ProgramView uses.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramView implements session.View by forwarding every call to a running
// Bubble Tea program as a message. Calls made before Attach are dropped;
// the app reads the controller's state directly when it starts.
//
// Send blocks until the program's event loop takes the message, so the
// controller must only be driven from tea.Cmd goroutines, never from
// Update.
type ProgramView struct {
	mu     sync.RWMutex
	sender Sender
}

// NewProgramView returns a view with nothing attached.
func NewProgramView() *ProgramView {
	return &ProgramView{}
}

// Attach routes later calls to s.
func (v *ProgramView) Attach(s Sender) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sender = s
}

func (v *ProgramView) send(msg tea.Msg) {
	v.mu.RLock()
	s := v.sender
	v.mu.RUnlock()
	if s != nil {
		s.Send(msg)
	}
}

func (v *ProgramView) SetControls(c session.Controls) { v.send(ControlsMsg{Controls: c}) }

func (v *ProgramView) SetBusy(busy bool, label string) {
	v.send(BusyMsg{Busy: busy, Label: label})
}

func (v *ProgramView) ShowDocument(doc session.Document) { v.send(DocumentMsg{Document: doc}) }

func (v *ProgramView) ShowUploadPrompt() { v.send(UploadPromptMsg{}) }

func (v *ProgramView) ShowAnswer(answer string, sources []session.Citation) {
	v.send(AnswerMsg{Answer: answer, Sources: sources})
}

func (v *ProgramView) ClearResults() { v.send(ClearResultsMsg{}) }

func (v *ProgramView) ShowError(msg string) { v.send(ErrorMsg{Text: msg}) }

func (v *ProgramView) ClearError() { v.send(ClearErrorMsg{}) }

func (v *ProgramView) ShowNotice(msg string) { v.send(NoticeMsg{Text: msg}) }

var _ session.View = (*ProgramView)(nil)
