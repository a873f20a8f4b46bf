package tui

import "github.com/pdfqa-dev/pdfqa/internal/session"

// ============================================================================
// Session Messages
// ============================================================================
//
// ProgramView turns each session.View call into one of these.

// ControlsMsg carries which inputs are enabled.
type ControlsMsg struct {
	Controls session.Controls
}

// BusyMsg shows or hides the loading indicator.
type BusyMsg struct {
	Busy  bool
	Label string
}

// DocumentMsg reports the document the backend holds.
type DocumentMsg struct {
	Document session.Document
}

// UploadPromptMsg signals that no document is loaded.
type UploadPromptMsg struct{}

// AnswerMsg carries an answer and its citations.
type AnswerMsg struct {
	Answer  string
	Sources []session.Citation
}

// ClearResultsMsg hides the answer, sources and error.
type ClearResultsMsg struct{}

// ErrorMsg shows an error line.
type ErrorMsg struct {
	Text string
}

// ClearErrorMsg hides the error line.
type ClearErrorMsg struct{}

// NoticeMsg shows an informational line.
type NoticeMsg struct {
	Text string
}

// ============================================================================
// Command Results
// ============================================================================

// OpDoneMsg signals that a controller operation returned. Err is the
// operation's error; the user has already been told about it through the
// session messages above.
type OpDoneMsg struct {
	Op  string
	Err error
}

// FileInfoMsg carries a local preview of a file about to be uploaded.
type FileInfoMsg struct {
	Info session.FileInfo
}

// ============================================================================
// Utility Messages
// ============================================================================

// CtrlCResetMsg clears a pending Ctrl+C confirmation.
type CtrlCResetMsg struct{}
