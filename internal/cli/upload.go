// upload.go implements the "pdfqa upload" command.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdfqa-dev/pdfqa/internal/session"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a PDF to the backend",
	Long: `Upload a PDF so later questions are answered from it. Files that are
not PDFs or exceed upload.max_bytes are refused without contacting the
backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	path := args[0]
	if st, err := os.Stat(path); err == nil && ctrl.Limits().Check(path, st.Size()) == nil {
		rt.logger.Debug().Str("file", session.Inspect(path, st.Size()).String()).Msg("uploading")
	}

	_, err = ctrl.UploadPath(ctx, path)
	return reported(err)
}
