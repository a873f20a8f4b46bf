// Package ui provides the line-oriented terminal view used by the one-shot
// commands (upload, ask, key, watch).
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/pdfqa-dev/pdfqa/internal/session"
)

// indicator is an animated busy line drawn on the current terminal row.
type indicator interface {
	Start()
	Stop()
}

// ConsoleView renders session updates as lines of text. On a terminal the
// loading indicator is a spinner; otherwise each busy label prints once per
// request.
type ConsoleView struct {
	mu           sync.Mutex
	out          io.Writer
	errOut       io.Writer
	isTTY        bool
	spin         indicator
	newIndicator func(label string) indicator
	busySince    time.Time
	lastLabel    string

	ok, fail, warn, info, dim, bold *color.Color
}

// NewConsoleView writes results to out and errors and progress to errOut.
func NewConsoleView(out, errOut io.Writer) *ConsoleView {
	v := &ConsoleView{
		out:    out,
		errOut: errOut,
		isTTY:  isTerminal(errOut),
		ok:     color.New(color.FgGreen),
		fail:   color.New(color.FgRed),
		warn:   color.New(color.FgYellow),
		info:   color.New(color.FgCyan),
		dim:    color.New(color.Faint),
		bold:   color.New(color.Bold),
	}
	v.newIndicator = func(label string) indicator {
		return spinner.New(spinner.CharSets[14], 100*time.Millisecond,
			spinner.WithWriter(v.errOut), spinner.WithSuffix(" "+label))
	}
	if !v.isTTY {
		for _, c := range []*color.Color{v.ok, v.fail, v.warn, v.info, v.dim, v.bold} {
			c.DisableColor()
		}
	}
	return v
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetControls is a no-op; a console has no inputs to enable.
func (v *ConsoleView) SetControls(session.Controls) {}

// SetBusy starts or stops the loading indicator.
func (v *ConsoleView) SetBusy(busy bool, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !busy {
		v.stopSpinnerLocked()
		v.busySince = time.Time{}
		v.lastLabel = ""
		return
	}

	v.busySince = time.Now()
	if !v.isTTY {
		if label != v.lastLabel {
			v.dim.Fprintln(v.errOut, label)
			v.lastLabel = label
		}
		return
	}

	v.stopSpinnerLocked()
	v.spin = v.newIndicator(label)
	v.spin.Start()
}

// stopSpinnerLocked erases the spinner so the next line starts at column
// zero. Once a message is printed the spinner stays off until the next
// SetBusy(true).
func (v *ConsoleView) stopSpinnerLocked() {
	if v.spin != nil {
		v.spin.Stop()
		v.spin = nil
	}
}

func (v *ConsoleView) ShowDocument(doc session.Document) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopSpinnerLocked()
	v.ok.Fprintf(v.errOut, "✓ %s\n", doc.Summary())
}

func (v *ConsoleView) ShowUploadPrompt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopSpinnerLocked()
	v.warn.Fprintln(v.errOut, "⚠ No document loaded. Upload a PDF with: pdfqa upload FILE")
}

// ShowAnswer prints the answer to out followed by its cited sources.
func (v *ConsoleView) ShowAnswer(answer string, sources []session.Citation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopSpinnerLocked()

	fmt.Fprintln(v.out, strings.TrimSpace(answer))
	if len(sources) > 0 {
		fmt.Fprintln(v.out)
		v.bold.Fprintf(v.out, "Sources (%s)\n", session.SourceCount(len(sources)))
		for _, src := range sources {
			fmt.Fprintln(v.out, formatCitation(src, v.info, v.dim))
		}
	}
	if !v.busySince.IsZero() {
		v.dim.Fprintf(v.errOut, "answered in %s\n", formatDuration(time.Since(v.busySince)))
	}
}

// ClearResults is a no-op; printed output cannot be withdrawn.
func (v *ConsoleView) ClearResults() {}

func (v *ConsoleView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopSpinnerLocked()
	v.fail.Fprintf(v.errOut, "✗ %s\n", msg)
}

func (v *ConsoleView) ClearError() {}

func (v *ConsoleView) ShowNotice(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopSpinnerLocked()
	v.info.Fprintf(v.errOut, "ℹ %s\n", msg)
}

// formatCitation renders one source as a heading line and an indented
// excerpt.
func formatCitation(src session.Citation, head, meta *color.Color) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(head.Sprint(src.Title()))
	b.WriteString("  ")
	b.WriteString(meta.Sprintf("%s · distance %s", src.Origin, src.Distance))
	for _, line := range strings.Split(strings.TrimSpace(src.Text), "\n") {
		b.WriteString("\n    ")
		b.WriteString(line)
	}
	return b.String()
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
