package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdfqa-dev/pdfqa/internal/session"
)

func newTestView() (*ConsoleView, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewConsoleView(&out, &errOut), &out, &errOut
}

func TestConsoleViewAnswer(t *testing.T) {
	v, out, errOut := newTestView()

	v.ShowAnswer("  Revenue grew 8%.\n", []session.Citation{
		{Index: 1, Text: "Revenue rose 8%.\nCosts were flat.", Origin: "report.pdf", Distance: "0.42"},
		{Index: 2, Text: "Outlook stable.", Origin: "Unknown Source", Distance: "N/A"},
	})

	want := "Revenue grew 8%.\n\n" +
		"Sources (2 sources)\n" +
		"  Source 1  report.pdf · distance 0.42\n" +
		"    Revenue rose 8%.\n" +
		"    Costs were flat.\n" +
		"  Source 2  Unknown Source · distance N/A\n" +
		"    Outlook stable.\n"
	assert.Equal(t, want, out.String())
	assert.Empty(t, errOut.String(), "no timing line when not busy")
}

func TestConsoleViewAnswerWithoutSources(t *testing.T) {
	v, out, _ := newTestView()
	v.ShowAnswer("Just this.", nil)
	assert.Equal(t, "Just this.\n", out.String())
}

func TestConsoleViewMessages(t *testing.T) {
	v, out, errOut := newTestView()

	v.ShowDocument(session.Document{Filename: "report.pdf", Chunks: 12, Vectors: 12})
	v.ShowError("Please select a PDF file")
	v.ShowNotice("API key is valid")
	v.ShowUploadPrompt()

	assert.Empty(t, out.String(), "status lines go to the error stream")
	got := errOut.String()
	assert.Contains(t, got, "✓ report.pdf loaded: 12 chunks, 12 vectors\n")
	assert.Contains(t, got, "✗ Please select a PDF file\n")
	assert.Contains(t, got, "ℹ API key is valid\n")
	assert.Contains(t, got, "No document loaded")
}

func TestConsoleViewBusyPlain(t *testing.T) {
	v, _, errOut := newTestView()

	v.SetBusy(true, "Uploading report.pdf...")
	v.SetBusy(true, "Uploading report.pdf...")
	v.SetBusy(false, "")
	v.SetBusy(true, "Uploading report.pdf...")
	v.SetBusy(false, "")

	assert.Equal(t, "Uploading report.pdf...\nUploading report.pdf...\n", errOut.String(),
		"a label prints once per request")
}

// fakeSpinner draws "[label]" on Start and erases it on Stop, the way a
// terminal spinner repaints its own row.
type fakeSpinner struct {
	w      *bytes.Buffer
	label  string
	active bool
}

func (f *fakeSpinner) Start() {
	f.active = true
	f.w.WriteString("\r[" + f.label + "]")
}

func (f *fakeSpinner) Stop() {
	if f.active {
		f.active = false
		f.w.WriteString("\r\033[K")
	}
}

func newTTYView() (*ConsoleView, *bytes.Buffer) {
	v, _, errOut := newTestView()
	v.isTTY = true
	v.newIndicator = func(label string) indicator {
		return &fakeSpinner{w: errOut, label: label}
	}
	return v, errOut
}

func TestConsoleViewSpinnerStopsBeforeMessages(t *testing.T) {
	tests := []struct {
		name string
		show func(v *ConsoleView)
		line string
	}{
		{"error", func(v *ConsoleView) { v.ShowError("Upload failed") }, "✗ Upload failed\n"},
		{"document", func(v *ConsoleView) {
			v.ShowDocument(session.Document{Filename: "x.pdf", Chunks: 1, Vectors: 1})
		}, "✓ x.pdf loaded: 1 chunks, 1 vectors\n"},
		{"notice", func(v *ConsoleView) { v.ShowNotice("API key is valid") }, "ℹ API key is valid\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, errOut := newTTYView()

			v.SetBusy(true, "Working...")
			tt.show(v)
			v.SetBusy(false, "")

			assert.Equal(t, "\r[Working...]\r\033[K"+tt.line, errOut.String())
		})
	}
}

func TestConsoleViewSpinnerStopsBeforeAnswer(t *testing.T) {
	v, errOut := newTTYView()

	v.SetBusy(true, "Thinking...")
	v.ShowAnswer("forty-two", nil)
	v.SetBusy(false, "")

	assert.True(t, strings.HasPrefix(errOut.String(), "\r[Thinking...]\r\033[Kanswered in "),
		"spinner erased before any output: %q", errOut.String())
}

func TestConsoleViewSpinnerRestartsPerRequest(t *testing.T) {
	v, errOut := newTTYView()

	v.SetBusy(true, "Thinking...")
	v.SetBusy(false, "")
	v.SetBusy(true, "Thinking...")
	v.SetBusy(false, "")

	assert.Equal(t, strings.Repeat("\r[Thinking...]\r\033[K", 2), errOut.String())
}

func TestConsoleViewAnswerTiming(t *testing.T) {
	v, _, errOut := newTestView()

	v.SetBusy(true, "Thinking...")
	v.ShowAnswer("a", nil)
	v.SetBusy(false, "")

	assert.Contains(t, errOut.String(), "answered in ")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{3 * time.Second, "3s"},
		{59*time.Second + 600*time.Millisecond, "1m0s"},
		{2*time.Minute + 5*time.Second, "2m5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}
