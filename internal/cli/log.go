// log.go implements the "pdfqa log" command that prints recent session
// events from the JSONL event log.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/pdfqa-dev/pdfqa/internal/config"
	"github.com/pdfqa-dev/pdfqa/internal/log"
)

var (
	logLimit   int
	logSession string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent uploads, questions and failures",
	Long: `Print the most recent events from the event log named by log.file in
config.yaml. Each line shows when the event happened, what it was and the
document, question or error involved.`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of events to show (0 for all)")
	logCmd.Flags().StringVar(&logSession, "session", "", "Only show events from this session ID")
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		return errors.New("event log is disabled; set log.file in config.yaml")
	}

	events, err := log.ReadAll(cfg.Log.File)
	if err != nil {
		return err
	}

	if logSession != "" {
		kept := events[:0]
		for _, e := range events {
			if e.Session == logSession {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	if logLimit > 0 && len(events) > logLimit {
		events = events[len(events)-logLimit:]
	}

	if len(events) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No events recorded.")
		return nil
	}
	out := cmd.OutOrStdout()
	for _, e := range events {
		writeEvent(out, e)
	}
	return nil
}

func writeEvent(w io.Writer, e log.LogEvent) {
	var details []string
	if e.Filename != "" {
		details = append(details, e.Filename)
	}
	if e.Bytes > 0 {
		details = append(details, humanize.IBytes(uint64(e.Bytes)))
	}
	if e.Chunks > 0 || e.Vectors > 0 {
		details = append(details, fmt.Sprintf("%d chunks, %d vectors", e.Chunks, e.Vectors))
	}
	if e.Question != "" {
		details = append(details, fmt.Sprintf("%q", e.Question))
	}
	if e.Sources > 0 {
		details = append(details, english.Plural(e.Sources, "source", "sources"))
	}
	if e.Status != 0 {
		details = append(details, fmt.Sprintf("status %d", e.Status))
	}
	if e.DurationMs > 0 {
		details = append(details, fmt.Sprintf("%dms", e.DurationMs))
	}
	if e.Error != "" {
		details = append(details, "error: "+e.Error)
	}

	fmt.Fprintf(w, "%-16s %-20s %s\n", humanize.Time(e.Time), e.Event, strings.Join(details, "  "))
}
