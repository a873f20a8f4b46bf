// key.go implements the "pdfqa key" commands managing the stored API key.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pdfqa-dev/pdfqa/internal/config"
	"github.com/pdfqa-dev/pdfqa/internal/credential"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the API key sent with uploads and questions",
	Long: `Manage the API key sent with uploads and questions. The key is kept in
a single file readable only by you. ` + config.EnvAPIKey + ` overrides it when set.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set [KEY]",
	Short: "Save an API key",
	Long:  "Save an API key. When KEY is omitted it is read from the terminal without echo, or from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeySet,
}

var keyTestCmd = &cobra.Command{
	Use:   "test [KEY]",
	Short: "Check an API key with the backend",
	Long:  "Check an API key with the backend. Tests the stored key when KEY is omitted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeyTest,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored API key, masked",
	Args:  cobra.NoArgs,
	RunE:  runKeyShow,
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyClear,
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyTestCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyClearCmd)
}

func runKeySet(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		key, err = readKey(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	return reported(ctrl.SaveCredential(key))
}

func runKeyTest(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	key := ctrl.Credential()
	if len(args) == 1 {
		key = args[0]
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return reported(ctrl.TestCredential(ctx, key))
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	key := ctrl.Credential()
	if key == "" {
		return fmt.Errorf("no API key stored; save one with: pdfqa key set")
	}
	fmt.Fprintln(cmd.OutOrStdout(), credential.Mask(key))
	if os.Getenv(config.EnvAPIKey) != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "(from %s)\n", config.EnvAPIKey)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "(stored in %s)\n", rt.store.Path())
	}
	return nil
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	rt, ctrl, err := console(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return reported(ctrl.ClearCredential())
}

// readKey reads one line from in, without echo when in is a terminal.
func readKey(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "API key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
