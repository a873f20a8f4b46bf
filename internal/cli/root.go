// Package cli defines Cobra command definitions for the pdfqa CLI.
// This file contains the root command, global flags and the shared wiring
// every subcommand uses to build a session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
	"github.com/pdfqa-dev/pdfqa/internal/config"
	"github.com/pdfqa-dev/pdfqa/internal/credential"
	"github.com/pdfqa-dev/pdfqa/internal/log"
	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/tui"
	"github.com/pdfqa-dev/pdfqa/internal/tui/app"
	"github.com/pdfqa-dev/pdfqa/internal/ui"
)

var (
	backendFlag string
	configFlag  string
	verbose     bool
	version     = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "pdfqa",
	Short: "Ask questions about a PDF through a question-answering backend",
	Long: `pdfqa uploads a PDF to a question-answering service and asks it
questions, showing each answer with the passages it was drawn from.

Run without a subcommand on a terminal to open the interactive client.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runInteractive,
}

// errReported marks failures the view has already shown, so Execute only
// sets the exit code.
var errReported = errors.New("reported")

type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() []error { return []error{e.err, errReported} }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend base URL (overrides config and "+config.EnvBackendURL+")")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print debug logs to stderr")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logCmd)
}

// runtime holds what a command needs to drive a session.
type runtime struct {
	cfg    *config.Config
	logger *log.Logger
	client *backend.Client
	store  *credential.FileStore
	creds  credential.Store
}

// loadRuntime reads config and builds the logger, backend client and
// credential store. Call Close when done.
func loadRuntime(errOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		cfg.Backend.URL = backendFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := log.New(log.Options{Level: level, Output: errOut, EventFile: cfg.Log.File})
	if err != nil {
		return nil, err
	}

	credPath, err := cfg.CredentialPath()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	store := credential.NewFileStore(credPath)
	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		client: backend.NewClient(cfg.Backend.URL, backend.WithTimeout(cfg.Backend.Timeout)),
		store:  store,
		creds:  credential.EnvOverride{Store: store, Value: os.Getenv(config.EnvAPIKey)},
	}
	logger.Debug().Str("backend", cfg.Backend.URL).Str("credential", store.Path()).Msg("runtime ready")
	return rt, nil
}

func (rt *runtime) Close() {
	_ = rt.logger.Close()
}

// session builds a controller that reports through view.
func (rt *runtime) session(view session.View) (*session.Controller, error) {
	ctrl, err := session.New(session.Options{
		Backend:     rt.client,
		Credentials: rt.creds,
		View:        view,
		Logger:      rt.logger,
		Limits: session.UploadLimits{
			MaxBytes:   rt.cfg.Upload.MaxBytes,
			Extensions: rt.cfg.Upload.Extensions,
		},
	})
	if err != nil {
		return nil, err
	}
	rt.logger.Debug().Str("session", ctrl.ID()).Msg("session started")
	return ctrl, nil
}

// console loads the runtime and a controller bound to a ConsoleView on the
// command's output streams.
func console(cmd *cobra.Command) (*runtime, *session.Controller, error) {
	rt, err := loadRuntime(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := rt.session(ui.NewConsoleView(cmd.OutOrStdout(), cmd.ErrOrStderr()))
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	return rt, ctrl, nil
}

// signalContext is cancelled on interrupt so in-flight requests stop.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	// When no subcommand is provided, launch TUI if TTY, show help otherwise
	if !tui.IsTTY() {
		return cmd.Help()
	}

	// The TUI owns the screen; diagnostics go to the event log only.
	rt, err := loadRuntime(io.Discard)
	if err != nil {
		return err
	}
	defer rt.Close()

	view := tui.NewProgramView()
	ctrl, err := rt.session(view)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := app.New(ctx, rt.cfg, ctrl, rt.logger)
	defer a.Close()
	return tui.Run(a, func(p *tea.Program) { view.Attach(p) })
}
