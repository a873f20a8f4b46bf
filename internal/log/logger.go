// Package log provides diagnostic logging and a structured event log.
// Events are appended as JSON lines so a session can be reviewed later.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event type constants.
const (
	EventStatusChecked      = "status_checked"
	EventStatusFailed       = "status_failed"
	EventUploadRejected     = "upload_rejected"
	EventUploadStarted      = "upload_started"
	EventUploadCompleted    = "upload_completed"
	EventUploadFailed       = "upload_failed"
	EventQuestionAsked      = "question_asked"
	EventAnswerReceived     = "answer_received"
	EventAskFailed          = "ask_failed"
	EventCredentialSaved    = "credential_saved"
	EventCredentialCleared  = "credential_cleared"
	EventCredentialTested   = "credential_tested"
	EventCredentialRejected = "credential_rejected"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time `json:"time"`
	Event      string    `json:"event"`
	Session    string    `json:"session,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Chunks     int       `json:"chunks,omitempty"`
	Vectors    int       `json:"vectors,omitempty"`
	Question   string    `json:"question,omitempty"`
	Sources    int       `json:"sources,omitempty"`
	Status     int       `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Logger writes diagnostics to a console writer and, when configured,
// append-only JSONL events to a log file.
type Logger struct {
	diag    zerolog.Logger
	sink    *eventSink
	session string
}

// eventSink is shared by a Logger and the children returned from With.
type eventSink struct {
	mu   sync.Mutex
	zl   zerolog.Logger
	file *os.File
}

// Options configure a Logger.
type Options struct {
	Level     string    // debug | info | warn | error; defaults to warn
	Output    io.Writer // diagnostic output; defaults to stderr
	EventFile string    // JSONL event log; disabled when empty
}

// New creates a Logger. The event file's directory is created if needed and
// an existing file is never truncated.
func New(opts Options) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	l := &Logger{
		diag: zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}).Level(parseLevel(opts.Level)).With().Timestamp().Logger(),
		sink: &eventSink{zl: zerolog.Nop()},
	}

	if opts.EventFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.EventFile), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.EventFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.sink.file = f
		l.sink.zl = zerolog.New(f)
	}

	return l, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{diag: zerolog.Nop(), sink: &eventSink{zl: zerolog.Nop()}}
}

// Close releases the event file, if any.
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file == nil {
		return nil
	}
	err := l.sink.file.Close()
	l.sink.file = nil
	l.sink.zl = zerolog.Nop()
	return err
}

// Debug starts a diagnostic debug entry.
func (l *Logger) Debug() *zerolog.Event { return l.diag.Debug() }

// Info starts a diagnostic info entry.
func (l *Logger) Info() *zerolog.Event { return l.diag.Info() }

// Warn starts a diagnostic warning entry.
func (l *Logger) Warn() *zerolog.Event { return l.diag.Warn() }

// Error starts a diagnostic error entry.
func (l *Logger) Error() *zerolog.Event { return l.diag.Error() }

// With returns a child Logger whose diagnostics and events carry the given
// session ID. The child shares the parent's event file.
func (l *Logger) With(session string) *Logger {
	return &Logger{
		diag:    l.diag.With().Str("session", session).Logger(),
		sink:    l.sink,
		session: session,
	}
}

// Append writes a single LogEvent as one JSON line to the event file.
// If event.Time is the zero value, it is set to time.Now().UTC().
// Thread-safe via mutex. A no-op when no event file is configured.
func (l *Logger) Append(event LogEvent) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.Session == "" {
		event.Session = l.session
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	e := l.sink.zl.Log().
		Time("time", event.Time).
		Str("event", event.Event)
	if event.Session != "" {
		e = e.Str("session", event.Session)
	}
	if event.Filename != "" {
		e = e.Str("filename", event.Filename)
	}
	if event.Bytes != 0 {
		e = e.Int64("bytes", event.Bytes)
	}
	if event.Chunks != 0 {
		e = e.Int("chunks", event.Chunks)
	}
	if event.Vectors != 0 {
		e = e.Int("vectors", event.Vectors)
	}
	if event.Question != "" {
		e = e.Str("question", event.Question)
	}
	if event.Sources != 0 {
		e = e.Int("sources", event.Sources)
	}
	if event.Status != 0 {
		e = e.Int("status", event.Status)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	if event.DurationMs != 0 {
		e = e.Int64("duration_ms", event.DurationMs)
	}
	e.Send()
}

// ReadAll reads and parses all events from the event file at path.
// Returns an empty slice (not an error) if the file does not exist.
func ReadAll(path string) ([]LogEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}
