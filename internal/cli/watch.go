// watch.go implements the "pdfqa watch" command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdfqa-dev/pdfqa/internal/watch"
)

var (
	watchExisting bool
	watchSettle   = watch.DefaultSettle
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Upload PDFs as they appear in a directory",
	Long: `Watch DIR and upload every PDF that is created or rewritten there, one
at a time. A file is uploaded once it has gone --settle without changes.
Failed uploads are reported and the watch continues. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also upload PDFs already in DIR")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "Quiet period before a changed file is uploaded")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// Learn the current document so the first upload replaces it cleanly.
	_, _ = ctrl.CheckStatus(ctx)

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for PDFs (Ctrl+C to stop)\n", dir)
	w := watch.New(ctrl, watch.Options{
		Extensions: rt.cfg.Upload.Extensions,
		Settle:     watchSettle,
		Existing:   watchExisting,
		Logger:     rt.logger,
	})
	return w.Run(ctx, dir)
}
