package tui

import "github.com/pdfqa-dev/pdfqa/internal/config"

// Mode selects which input owns the keyboard.
type Mode int

const (
	ModeAsk       Mode = iota // question input
	ModeUpload                // file path prompt
	ModeSaveKey               // API key prompt, saves on submit
	ModeTestKey               // API key prompt, tests on submit
)

func (m Mode) String() string {
	switch m {
	case ModeUpload:
		return "upload"
	case ModeSaveKey:
		return "save-key"
	case ModeTestKey:
		return "test-key"
	default:
		return "ask"
	}
}

// Model is the state shared across views.
type Model struct {
	Mode Mode
	Cfg  *config.Config

	// Terminal dimensions
	Width  int
	Height int

	// Ctrl+C confirmation state
	CtrlCPending bool // True when waiting for second Ctrl+C press
}

// NewModel creates a new Model with the given configuration.
func NewModel(cfg *config.Config) *Model {
	return &Model{
		Mode: ModeAsk,
		Cfg:  cfg,

		// Default dimensions (will be updated on WindowSizeMsg)
		Width:  80,
		Height: 24,
	}
}
