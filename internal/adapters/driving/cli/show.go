package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// formatHTML prints the stored markup unchanged.
const formatHTML = "html"

var showCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Print a saved document",
	Long: `Print the content of a saved document.

By default the page is rendered as Markdown. Use --as text for plain text
or --as html for the captured markup exactly as stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var showAs string

func init() {
	showCmd.Flags().StringVar(&showAs, "as", "markdown", "Output: markdown, text or html")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	ctx := commandContext(cmd)
	doc, err := libraryService.GetDocument(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document not found: %s", args[0])
		}
		return fmt.Errorf("failed to read document: %w", err)
	}

	if strings.EqualFold(showAs, formatHTML) {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
		return err
	}

	if renderers == nil {
		return errors.New("renderers not configured")
	}
	renderer, err := renderers.Get(showAs)
	if err != nil {
		return err
	}
	out, err := renderer.Render(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
