package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

var exportCmd = &cobra.Command{
	Use:   "export [doc-id...]",
	Short: "Export documents as JSON",
	Long: `Write the given documents, or every document with --all, and their
images to a JSON file that "webstash import" can read back.`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import documents from a JSON export",
	Long: `Import documents and images from a file written by "webstash export".

Documents that already exist are skipped. Records that fail validation are
reported and left out; the rest are imported. Without a file argument you
are prompted for a path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var (
	exportAll    bool
	exportOutput string
)

func init() {
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every document")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !exportAll {
		return errors.New("give document ids or --all")
	}
	if transferService == nil {
		return errors.New("transfer service not configured")
	}

	session, err := newSession()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if err := session.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	if exportAll {
		session.SelectAll()
	} else {
		session.SetSelection(args)
	}

	data, err := session.ExportSelected(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errors.New("no matching documents to export")
		}
		return fmt.Errorf("failed to export: %w", err)
	}

	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}

	if err := os.WriteFile(exportOutput, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	cmd.Printf("Exported %d document(s) to %s\n", len(session.Selected()), exportOutput)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if transferService == nil {
		return errors.New("transfer service not configured")
	}
	if len(args) == 1 {
		if importPicker == nil {
			return errors.New("file picker not configured")
		}
		importPicker.Preset(args[0])
	}

	report, err := transferService.ImportFile(commandContext(cmd))
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			cmd.Println("Import cancelled.")
			return nil
		}
		return fmt.Errorf("failed to import: %w", err)
	}

	cmd.Printf("Imported %s\n", report.File)
	cmd.Printf("  Documents: %d new, %d already present\n", report.Result.Inserted, report.Result.Skipped)
	cmd.Printf("  Images:    %d new, %d already present\n",
		report.Result.ResourcesInserted, report.Result.ResourcesSkipped)

	if len(report.Rejected) > 0 {
		cmd.Printf("  Rejected:  %d record(s)\n", len(report.Rejected))
		for _, r := range report.Rejected {
			label := r.ID
			if label == "" {
				label = fmt.Sprintf("#%d", r.Index)
			}
			cmd.Printf("    %s %s: %s\n", r.Kind, label, r.Reason)
		}
	}
	return nil
}
