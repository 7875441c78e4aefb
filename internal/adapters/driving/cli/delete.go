package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents and their images",
	Long: `Delete the given documents, or every document with --all.

Unknown ids are ignored. You are asked to confirm unless --yes is given;
without a terminal, --yes is required.`,
	RunE: runDelete,
}

var (
	deleteAll bool
	deleteYes bool
)

// confirmInput is read for the delete confirmation. Tests replace it.
var confirmInput = func() (*bufio.Reader, bool) {
	return bufio.NewReader(os.Stdin), term.IsTerminal(int(os.Stdin.Fd()))
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every document")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !deleteAll {
		return errors.New("give document ids or --all")
	}
	if len(args) > 0 && deleteAll {
		return errors.New("--all cannot be combined with document ids")
	}
	if commandService == nil {
		return errors.New("background messenger not configured")
	}

	session, err := newSession()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if err := session.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	if deleteAll {
		session.SelectAll()
	} else {
		session.SetSelection(args)
	}

	selected := session.Selected()
	if len(selected) == 0 {
		cmd.Println("Nothing to delete.")
		return nil
	}

	if !deleteYes {
		reader, interactive := confirmInput()
		if !interactive {
			return errors.New("refusing to delete without confirmation; pass --yes")
		}
		cmd.Printf("Delete %d document(s)? [y/N]: ", len(selected))
		if answer := strings.ToLower(readLine(reader)); answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	n, err := session.DeleteSelected(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	cmd.Printf("Deleted %d document(s).\n", n)
	return nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
