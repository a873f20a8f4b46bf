// Package app provides the main TUI application that wires all views together.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfqa-dev/pdfqa/internal/config"
	"github.com/pdfqa-dev/pdfqa/internal/log"
	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/tui"
	"github.com/pdfqa-dev/pdfqa/internal/tui/commands"
	"github.com/pdfqa-dev/pdfqa/internal/tui/views"
)

// App is the main TUI application that wires all views together.
type App struct {
	model  *tui.Model
	ctrl   *session.Controller
	logger *log.Logger

	// ctx is cancelled on quit so in-flight requests stop with the program.
	ctx    context.Context
	cancel context.CancelFunc

	// View models
	askView views.AskModel
	prompt  views.PromptModel
}

// New creates a new App driving ctrl. The controller's view must be a
// tui.ProgramView attached to the program running this App.
func New(ctx context.Context, cfg *config.Config, ctrl *session.Controller, logger *log.Logger) *App {
	model := tui.NewModel(cfg)
	ctx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = log.Nop()
	}

	backendURL := ""
	if cfg != nil {
		backendURL = cfg.Backend.URL
	}

	return &App{
		model:   model,
		ctrl:    ctrl,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		askView: views.NewAskModel(backendURL, ctrl.State().Controls(), model.Width, model.Height),
	}
}

// Init checks the backend status and starts the cursor blinking.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.askView.Init(),
		commands.CheckStatusCmd(a.ctx, a.ctrl),
	)
}

// Mode returns which input owns the keyboard.
func (a *App) Mode() tui.Mode {
	return a.model.Mode
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		var cmd tea.Cmd
		a.askView, cmd = a.askView.Update(msg)
		if a.model.Mode != tui.ModeAsk {
			var promptCmd tea.Cmd
			a.prompt, promptCmd = a.prompt.Update(msg)
			cmd = tea.Batch(cmd, promptCmd)
		}
		return a, cmd

	case tea.KeyMsg:
		if key.Matches(msg, tui.DefaultKeyMap.CtrlC) {
			if a.model.CtrlCPending {
				// Second press within timeout - exit
				a.cancel()
				return a, tea.Quit
			}
			// First press - set pending and start timeout
			a.model.CtrlCPending = true
			return a, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})
		}
		if a.model.Mode != tui.ModeAsk {
			var cmd tea.Cmd
			a.prompt, cmd = a.prompt.Update(msg)
			return a, cmd
		}
		return a.updateAskKeys(msg)

	case tui.CtrlCResetMsg:
		a.model.CtrlCPending = false
		return a, nil

	case views.SubmitQuestionMsg:
		return a, commands.AskCmd(a.ctx, a.ctrl, msg.Question)

	case views.PromptSubmitMsg:
		return a.handlePromptSubmit(msg)

	case views.PromptCancelMsg:
		a.model.Mode = tui.ModeAsk
		return a, nil

	case views.PathChangedMsg:
		return a, commands.InspectCmd(msg.Path)

	case tui.FileInfoMsg:
		if a.model.Mode == tui.ModeUpload {
			var cmd tea.Cmd
			a.prompt, cmd = a.prompt.Update(msg)
			return a, cmd
		}
		return a, nil

	case tui.OpDoneMsg:
		if msg.Err != nil {
			a.logger.Debug().Err(msg.Err).Str("op", msg.Op).Msg("operation returned error")
		}
		return a, nil
	}

	// Session messages, spinner ticks and cursor blinks.
	var cmd tea.Cmd
	a.askView, cmd = a.askView.Update(msg)
	if a.model.Mode != tui.ModeAsk {
		var promptCmd tea.Cmd
		a.prompt, promptCmd = a.prompt.Update(msg)
		cmd = tea.Batch(cmd, promptCmd)
	}
	return a, cmd
}

// updateAskKeys handles keys while the question input has focus.
func (a *App) updateAskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	km := tui.DefaultKeyMap
	controls := a.askView.Controls()

	switch {
	case key.Matches(msg, km.Upload):
		if !controls.Upload {
			return a, nil
		}
		return a, a.openPrompt(tui.ModeUpload, "")

	case key.Matches(msg, km.SaveKey):
		return a, a.openPrompt(tui.ModeSaveKey, "")

	case key.Matches(msg, km.TestKey):
		if stored := a.ctrl.Credential(); stored != "" {
			return a, commands.TestKeyCmd(a.ctx, a.ctrl, stored)
		}
		return a, a.openPrompt(tui.ModeTestKey, "")

	case key.Matches(msg, km.Clear):
		if !controls.Clear {
			return a, nil
		}
		// Unlike the reset at the start of an ask, clearing also drops the
		// typed question.
		a.askView.ResetInput()
		return a, commands.ClearCmd(a.ctrl)

	case key.Matches(msg, km.Refresh):
		if a.askView.Busy() {
			return a, nil
		}
		return a, commands.CheckStatusCmd(a.ctx, a.ctrl)
	}

	var cmd tea.Cmd
	a.askView, cmd = a.askView.Update(msg)
	return a, cmd
}

func (a *App) openPrompt(mode tui.Mode, initial string) tea.Cmd {
	a.model.Mode = mode
	a.prompt = views.NewPromptModel(mode, initial, a.model.Width, a.model.Height)
	return a.prompt.Init()
}

func (a *App) handlePromptSubmit(msg views.PromptSubmitMsg) (tea.Model, tea.Cmd) {
	a.model.Mode = tui.ModeAsk

	switch msg.Mode {
	case tui.ModeUpload:
		path := commands.ExpandPath(msg.Value)
		if path == "" {
			var cmd tea.Cmd
			a.askView, cmd = a.askView.Update(tui.ErrorMsg{Text: session.MsgInvalidFile})
			return a, cmd
		}
		return a, commands.UploadCmd(a.ctx, a.ctrl, path)

	case tui.ModeSaveKey:
		return a, commands.SaveKeyCmd(a.ctrl, strings.TrimSpace(msg.Value))

	case tui.ModeTestKey:
		return a, commands.TestKeyCmd(a.ctx, a.ctrl, strings.TrimSpace(msg.Value))
	}
	return a, nil
}

// View renders the current application state.
func (a *App) View() string {
	// Sync Ctrl+C pending state to views
	a.askView.SetCtrlCPending(a.model.CtrlCPending)

	var content string
	switch a.model.Mode {
	case tui.ModeAsk:
		content = a.askView.View()
	default:
		content = a.prompt.View()
	}

	return a.centerContent(content)
}

// centerContent centers the given content both horizontally and vertically.
func (a *App) centerContent(content string) string {
	return lipgloss.Place(
		a.model.Width,
		a.model.Height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

// Close cancels any request still in flight.
func (a *App) Close() {
	a.cancel()
}
