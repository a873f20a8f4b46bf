// Package session implements the client session controller: it tracks
// whether a document is loaded and whether a request is in flight, gates
// question-asking on that state, and relays requests to the backend while
// keeping an injected View up to date.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
)

// State is the controller's single tagged state. Loading and document
// readiness are folded together so asking without a document, or asking
// twice at once, cannot be expressed.
type State int

const (
	StateUninitialized State = iota // status not yet checked
	StateAwaitingUpload             // no document on the backend
	StateUploading                  // upload in flight
	StateReady                      // document loaded, idle
	StateAskInFlight                // question in flight
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingUpload:
		return "awaiting_upload"
	case StateUploading:
		return "uploading"
	case StateReady:
		return "ready"
	case StateAskInFlight:
		return "ask_in_flight"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Busy reports whether a request owns the session.
func (s State) Busy() bool {
	return s == StateUploading || s == StateAskInFlight
}

// DocumentLoaded reports whether the backend holds a document.
func (s State) DocumentLoaded() bool {
	return s == StateReady || s == StateAskInFlight
}

// Controls reports which user actions the state permits.
func (s State) Controls() Controls {
	switch s {
	case StateReady:
		return Controls{Question: true, Ask: true, Clear: true, Upload: true}
	case StateAskInFlight:
		return Controls{Question: true}
	case StateUploading:
		return Controls{}
	default:
		return Controls{Upload: true}
	}
}

// Controls is the enablement of each input. Ask means asking is permitted;
// views still hold the ask action disabled while the question text is blank.
type Controls struct {
	Question bool
	Ask      bool
	Clear    bool
	Upload   bool
}

// Document describes what the backend has ingested.
type Document struct {
	Filename string
	Chunks   int
	Vectors  int
}

// Summary renders the status line shown once a document is ready.
func (d Document) Summary() string {
	name := d.Filename
	if name == "" {
		name = "Document"
	}
	return fmt.Sprintf("%s loaded: %d chunks, %d vectors", name, d.Chunks, d.Vectors)
}

// View is every region the controller writes to. Implementations must be
// safe to call from any goroutine.
type View interface {
	SetControls(c Controls)
	// SetBusy shows or hides the loading indicator.
	SetBusy(busy bool, label string)
	ShowDocument(doc Document)
	ShowUploadPrompt()
	ShowAnswer(answer string, sources []Citation)
	// ClearResults hides the answer, the sources and any error.
	ClearResults()
	ShowError(msg string)
	ClearError()
	ShowNotice(msg string)
}

// Backend is the subset of backend.Client the controller needs.
type Backend interface {
	Status(ctx context.Context) (*backend.StatusResponse, error)
	Upload(ctx context.Context, filename string, body io.Reader, apiKey string) (*backend.UploadResponse, error)
	Ask(ctx context.Context, question, apiKey string) (*backend.AskResponse, error)
	TestAPIKey(ctx context.Context, key string) error
}
