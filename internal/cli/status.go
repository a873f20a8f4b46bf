// status.go implements the "pdfqa status" command showing what the backend
// has loaded.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdfqa-dev/pdfqa/internal/credential"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend and the loaded document",
	Long: `Ask the backend whether a document is loaded and print its name and
chunk counts, along with the backend URL and the API key in use (masked).`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend: %s\n", rt.client.BaseURL())
	if key := ctrl.Credential(); key != "" {
		fmt.Fprintf(out, "API key: %s\n", credential.Mask(key))
	} else {
		fmt.Fprintln(out, "API key: (none)")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// A failed check is not shown by the session, so report it here.
	if _, err := ctrl.CheckStatus(ctx); err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	return nil
}
