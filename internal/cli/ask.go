// ask.go implements the "pdfqa ask" command.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var askUpload string

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Ask a question about the loaded document",
	Long: `Ask the backend a question about the document it has loaded and print
the answer followed by its sources. Words are joined into one question, so
quoting is optional.

Use --upload to send a PDF first.`,
	Example: `  pdfqa ask what is the warranty period
  pdfqa ask --upload manual.pdf "How do I reset it?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUpload, "upload", "", "Upload this PDF before asking")
}

func runAsk(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if askUpload != "" {
		if _, err := ctrl.UploadPath(ctx, askUpload); err != nil {
			return reported(err)
		}
	} else {
		// Learn whether a document is loaded. Failure leaves the session
		// awaiting an upload and Ask reports it.
		_, _ = ctrl.CheckStatus(ctx)
	}

	_, err = ctrl.Ask(ctx, strings.Join(args, " "))
	return reported(err)
}
