package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
	"github.com/pdfqa-dev/pdfqa/internal/credential"
	"github.com/pdfqa-dev/pdfqa/internal/log"
)

// Messages shown to the user for locally detected problems.
const (
	MsgEmptyQuestion   = "Please enter a question"
	MsgInvalidFile     = "Please select a PDF file"
	MsgNoDocument      = "Please upload a PDF first"
	MsgUploadFailed    = "Upload failed"
	MsgEmptyCredential = "Please enter an API key"
	MsgCredentialValid = "API key is valid"
	MsgCredentialSaved = "API key saved"
	MsgCredentialGone  = "API key cleared"
)

var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNoDocument      = errors.New("no document loaded")
	ErrInvalidFileType = errors.New("file is not a PDF")
	ErrFileTooLarge    = errors.New("file exceeds upload limit")
	ErrEmptyCredential = errors.New("API key is empty")
	// ErrBusy is returned, without touching the view, when a request is
	// already in flight.
	ErrBusy = errors.New("request already in flight")
)

// Options configures a Controller. Backend, Credentials and View are
// required.
type Options struct {
	Backend     Backend
	Credentials credential.Store
	View        View
	Logger      *log.Logger
	Limits      UploadLimits
}

// Controller owns the session state. All operations are safe for
// concurrent use; at most one upload or question is in flight at a time.
type Controller struct {
	backend Backend
	creds   credential.Store
	view    View
	logger  *log.Logger
	limits  UploadLimits
	id      string

	mu    sync.Mutex
	state State
	doc   *Document
	key   string
}

// New builds a controller and loads the stored credential.
func New(opts Options) (*Controller, error) {
	if opts.Backend == nil || opts.Credentials == nil || opts.View == nil {
		return nil, errors.New("session: backend, credentials and view are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Limits.MaxBytes <= 0 {
		opts.Limits.MaxBytes = DefaultUploadLimits().MaxBytes
	}
	if len(opts.Limits.Extensions) == 0 {
		opts.Limits.Extensions = DefaultUploadLimits().Extensions
	}

	key, _, err := opts.Credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	id := uuid.NewString()
	c := &Controller{
		backend: opts.Backend,
		creds:   opts.Credentials,
		view:    opts.View,
		logger:  opts.Logger.With(id),
		limits:  opts.Limits,
		id:      id,
		state:   StateUninitialized,
		key:     key,
	}
	c.view.SetControls(StateUninitialized.Controls())
	return c, nil
}

// ID identifies this session in logs.
func (c *Controller) ID() string { return c.id }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Document returns the loaded document, if any.
func (c *Controller) Document() (Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return Document{}, false
	}
	return *c.doc, true
}

// Credential returns the key forwarded on protected requests.
func (c *Controller) Credential() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Limits returns the upload checks in force.
func (c *Controller) Limits() UploadLimits { return c.limits }

// CheckStatus asks the backend whether a document is loaded and moves to
// Ready or AwaitingUpload. A failed check is logged but not shown; the
// session falls back to AwaitingUpload.
func (c *Controller) CheckStatus(ctx context.Context) (*backend.StatusResponse, error) {
	if c.State().Busy() {
		return nil, ErrBusy
	}

	st, err := c.backend.Status(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("status check failed")
		c.logger.Append(log.LogEvent{
			Event:  log.EventStatusFailed,
			Status: backend.StatusCode(err),
			Error:  err.Error(),
		})
		if c.settle(StateAwaitingUpload, nil) {
			c.view.ShowUploadPrompt()
		}
		return nil, fmt.Errorf("check status: %w", err)
	}

	c.logger.Append(log.LogEvent{
		Event:    log.EventStatusChecked,
		Filename: st.Filename,
		Chunks:   st.Chunks,
		Vectors:  st.Vectors,
	})

	if !st.Loaded {
		if c.settle(StateAwaitingUpload, nil) {
			c.view.ShowUploadPrompt()
		}
		return st, nil
	}

	doc := Document{Filename: st.Filename, Chunks: st.Chunks, Vectors: st.Vectors}
	if c.settle(StateReady, &doc) {
		c.view.ShowDocument(doc)
	}
	return st, nil
}

// settle applies a status result unless a request started meanwhile.
func (c *Controller) settle(next State, doc *Document) bool {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return false
	}
	c.state = next
	c.doc = doc
	c.mu.Unlock()

	c.view.SetControls(next.Controls())
	return true
}

// UploadPath opens and uploads the file at path.
func (c *Controller) UploadPath(ctx context.Context, path string) (*backend.UploadResponse, error) {
	f, closer, err := OpenFile(path)
	if err != nil {
		c.view.ShowError(fmt.Sprintf("Cannot read %s", filepath.Base(path)))
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer closer.Close()

	return c.Upload(ctx, f)
}

func (c *Controller) checkUpload(name string, size int64) error {
	err := c.limits.Check(name, size)
	if err == nil {
		return nil
	}
	var rej *RejectError
	if errors.As(err, &rej) {
		c.view.ShowError(rej.Message)
	}
	c.logger.Append(log.LogEvent{
		Event:    log.EventUploadRejected,
		Filename: name,
		Bytes:    size,
		Error:    err.Error(),
	})
	return err
}

// Upload sends f to the backend. Invalid files are refused locally with
// no request made. On success the session becomes Ready; on failure it
// returns to where it was.
func (c *Controller) Upload(ctx context.Context, f UploadFile) (*backend.UploadResponse, error) {
	if err := c.checkUpload(f.Name, f.Size); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	next := c.state
	if next == StateUninitialized {
		next = StateAwaitingUpload
	}
	c.state = StateUploading
	key := c.key
	c.mu.Unlock()

	c.view.SetControls(StateUploading.Controls())
	c.view.ClearError()
	c.view.SetBusy(true, fmt.Sprintf("Uploading %s...", f.Name))
	defer func() { c.release(next) }()

	c.logger.Append(log.LogEvent{Event: log.EventUploadStarted, Filename: f.Name, Bytes: f.Size})
	start := time.Now()

	resp, err := c.backend.Upload(ctx, f.Name, f.Body, key)
	if err != nil {
		msg := backend.ErrorMessage(err)
		if msg == "" {
			msg = MsgUploadFailed
		}
		c.view.ShowError(msg)
		c.logger.Error().Err(err).Str("filename", f.Name).Msg("upload failed")
		c.logger.Append(log.LogEvent{
			Event:      log.EventUploadFailed,
			Filename:   f.Name,
			Status:     backend.StatusCode(err),
			Error:      err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	name := resp.Filename
	if name == "" {
		name = f.Name
	}
	doc := Document{Filename: name, Chunks: resp.Chunks, Vectors: resp.Vectors}
	c.mu.Lock()
	c.doc = &doc
	c.mu.Unlock()
	next = StateReady

	c.view.ShowDocument(doc)
	c.logger.Append(log.LogEvent{
		Event:      log.EventUploadCompleted,
		Filename:   name,
		Bytes:      f.Size,
		Chunks:     resp.Chunks,
		Vectors:    resp.Vectors,
		DurationMs: time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// Ask sends question to the backend. Blank questions are refused locally,
// and a question asked while another request is in flight is dropped with
// ErrBusy. Whatever happens, the session leaves AskInFlight on return.
func (c *Controller) Ask(ctx context.Context, question string) (*backend.AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		c.view.ShowError(MsgEmptyQuestion)
		return nil, ErrEmptyQuestion
	}

	c.mu.Lock()
	switch {
	case c.state.Busy():
		c.mu.Unlock()
		return nil, ErrBusy
	case c.state != StateReady:
		c.mu.Unlock()
		c.view.ShowError(MsgNoDocument)
		return nil, ErrNoDocument
	}
	c.state = StateAskInFlight
	key := c.key
	c.mu.Unlock()

	c.view.SetControls(StateAskInFlight.Controls())
	c.view.ClearResults()
	c.view.SetBusy(true, "Thinking...")
	defer c.release(StateReady)

	c.logger.Append(log.LogEvent{Event: log.EventQuestionAsked, Question: question})
	start := time.Now()

	resp, err := c.backend.Ask(ctx, question, key)
	if err != nil {
		c.view.ShowError("Error contacting server: " + askFailure(err))
		c.logger.Error().Err(err).Msg("ask failed")
		c.logger.Append(log.LogEvent{
			Event:      log.EventAskFailed,
			Question:   question,
			Status:     backend.StatusCode(err),
			Error:      err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("ask: %w", err)
	}

	c.view.ShowAnswer(resp.Answer, Citations(resp.Sources))
	c.logger.Append(log.LogEvent{
		Event:      log.EventAnswerReceived,
		Question:   question,
		Sources:    len(resp.Sources),
		DurationMs: time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// askFailure names the cause of a failed ask. HTTP failures are reported
// by status alone.
func askFailure(err error) string {
	if code := backend.StatusCode(err); code != 0 {
		return fmt.Sprintf("Server error: %d", code)
	}
	return err.Error()
}

func (c *Controller) release(next State) {
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	c.view.SetBusy(false, "")
	c.view.SetControls(next.Controls())
}

// Clear hides the current answer, sources and error. The loaded document
// is untouched.
func (c *Controller) Clear() error {
	if c.State().Busy() {
		return ErrBusy
	}
	c.view.ClearResults()
	return nil
}

// TestCredential asks the backend to validate key. The result is shown as
// a notice or an error; the session state does not change.
func (c *Controller) TestCredential(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		c.view.ShowError(MsgEmptyCredential)
		return ErrEmptyCredential
	}

	if err := c.backend.TestAPIKey(ctx, key); err != nil {
		msg := backend.ErrorMessage(err)
		switch {
		case msg != "":
		case backend.IsUnauthorized(err):
			msg = fmt.Sprintf("API key rejected (Server error: %d)", backend.StatusCode(err))
		default:
			msg = "Error contacting server: " + askFailure(err)
		}
		c.view.ShowError(msg)
		c.logger.Append(log.LogEvent{
			Event:  log.EventCredentialRejected,
			Status: backend.StatusCode(err),
			Error:  err.Error(),
		})
		return fmt.Errorf("test credential: %w", err)
	}

	c.view.ClearError()
	c.view.ShowNotice(MsgCredentialValid)
	c.logger.Append(log.LogEvent{Event: log.EventCredentialTested})
	return nil
}

// SaveCredential stores key and uses it on later requests.
func (c *Controller) SaveCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		c.view.ShowError(MsgEmptyCredential)
		return ErrEmptyCredential
	}
	if err := c.creds.Save(key); err != nil {
		c.view.ShowError(fmt.Sprintf("Could not save API key: %v", err))
		return fmt.Errorf("save credential: %w", err)
	}

	c.mu.Lock()
	c.key = key
	c.mu.Unlock()

	c.view.ClearError()
	c.view.ShowNotice(MsgCredentialSaved)
	c.logger.Append(log.LogEvent{Event: log.EventCredentialSaved})
	return nil
}

// ClearCredential forgets the stored key.
func (c *Controller) ClearCredential() error {
	if err := c.creds.Clear(); err != nil {
		c.view.ShowError(fmt.Sprintf("Could not clear API key: %v", err))
		return fmt.Errorf("clear credential: %w", err)
	}

	c.mu.Lock()
	c.key = ""
	c.mu.Unlock()

	c.view.ShowNotice(MsgCredentialGone)
	c.logger.Append(log.LogEvent{Event: log.EventCredentialCleared})
	return nil
}
