package session

import (
	"fmt"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
)

// Citation is a source passage prepared for display.
type Citation struct {
	Index    int    // 1-based
	Text     string
	Origin   string // "Unknown Source" when the backend sent none
	Distance string // two decimals, "N/A" when absent
}

// Title is the heading rendered above a citation.
func (c Citation) Title() string {
	return fmt.Sprintf("Source %d", c.Index)
}

// Citations converts backend sources into display order.
func Citations(sources []backend.Source) []Citation {
	out := make([]Citation, len(sources))
	for i, src := range sources {
		origin := src.Source
		if origin == "" {
			origin = "Unknown Source"
		}
		distance := "N/A"
		if src.Distance != nil {
			distance = fmt.Sprintf("%.2f", *src.Distance)
		}
		out[i] = Citation{
			Index:    i + 1,
			Text:     src.Text,
			Origin:   origin,
			Distance: distance,
		}
	}
	return out
}

// SourceCount renders "1 source" / "N sources".
func SourceCount(n int) string {
	if n == 1 {
		return "1 source"
	}
	return fmt.Sprintf("%d sources", n)
}
