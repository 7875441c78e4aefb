package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/webstash/internal/adapters/driving/tui"
)

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Browse and manage the library interactively",
	Long: `Open the interactive manager: select documents, delete or export them,
and switch between the flat and the per-domain layout.

The list follows changes made by other webstash processes.`,
	Args: cobra.NoArgs,
	RunE: runManage,
}

var manageExportDir string

// isInteractive reports whether the manager can take over the terminal.
// Tests replace it.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	manageCmd.Flags().StringVar(&manageExportDir, "export-dir", "", "Directory for exported files (default: current directory)")
	rootCmd.AddCommand(manageCmd)
}

func runManage(cmd *cobra.Command, _ []string) error {
	if !isInteractive() {
		return errors.New("manage needs an interactive terminal")
	}

	app, err := tui.NewApp(&tui.Ports{
		Library:  libraryService,
		Commands: commandService,
		Transfer: transferService,
		Watcher:  storeWatcher,
	}, manageExportDir)
	if err != nil {
		return err
	}

	return app.WithContext(commandContext(cmd)).Run()
}
