package tui

import (
	"fmt"
	"io"
)

// Fallback handles non-TTY execution by pointing users at the one-shot
// commands.
func Fallback(w io.Writer) error {
	lines := []string{
		"Non-TTY environment detected.",
		"Use the one-shot commands instead:",
		"  pdfqa status            show whether a document is loaded",
		"  pdfqa upload FILE.pdf   upload a document",
		"  pdfqa ask QUESTION      ask about the loaded document",
		"  pdfqa key set|test      manage the API key",
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
