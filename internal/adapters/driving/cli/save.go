package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

var saveCmd = &cobra.Command{
	Use:   "save [url]",
	Short: "Capture a page and store it",
	Long: `Fetch a web page and store it in the library with its images.

By default the whole page is kept. Use --article to keep only the main
article. Whether images are downloaded or only referenced follows the
image_save_type preference (see "webstash config").`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var saveArticle bool

func init() {
	saveCmd.Flags().BoolVarP(&saveArticle, "article", "a", false, "Keep only the main article")
	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	if commandService == nil {
		return errors.New("background messenger not configured")
	}

	payload := domain.SavePayload{HandleType: domain.HandleTypePage, URL: args[0]}
	if saveArticle {
		payload.HandleType = domain.HandleTypeArticle
	}

	doc, err := commandService.SaveDocument(commandContext(cmd), payload)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}

	cmd.Printf("Saved: %s\n", doc.Title)
	cmd.Printf("  ID:     %s\n", doc.ID)
	cmd.Printf("  Domain: %s\n", doc.Domain)
	cmd.Printf("  Size:   %.2f MB\n", doc.ContentSize)
	return nil
}
