package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/services"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved documents",
	Long: `List saved documents, oldest first.

The layout follows the list_display_type preference: "default" prints one
line per document, "domain" groups documents by host with their total size.
Use --watch to reprint the list whenever the library changes.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show documents grouped by domain",
	Args:  cobra.NoArgs,
	RunE:  runGroups,
}

var (
	listFormat  string
	listWatch   bool
	groupFormat string
)

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", formatText, "Output format: text, json or yaml")
	listCmd.Flags().BoolVarP(&listWatch, "watch", "w", false, "Reprint when the library changes")
	groupsCmd.Flags().StringVarP(&groupFormat, "format", "f", formatText, "Output format: text, json or yaml")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(groupsCmd)
}

func newSession() (*services.ManagerSession, error) {
	if libraryService == nil {
		return nil, errors.New("library service not configured")
	}
	return services.NewManagerSession(libraryService, commandService, transferService), nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := validFormat(listFormat); err != nil {
		return err
	}
	session, err := newSession()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if err := session.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if err := printView(cmd.OutOrStdout(), session.View(), listFormat); err != nil {
		return err
	}

	if !listWatch {
		return nil
	}
	if storeWatcher == nil {
		return errors.New("store watcher not configured")
	}

	return session.Watch(ctx, storeWatcher, func(err error) {
		if err != nil {
			cmd.PrintErrf("refresh failed: %v\n", err)
			return
		}
		cmd.Println()
		printView(cmd.OutOrStdout(), session.View(), listFormat) //nolint:errcheck
	})
}

func printView(w io.Writer, view services.ManagerView, format string) error {
	if format != formatText {
		if view.DisplayType == domain.ListDisplayDomain {
			return writeStructured(w, format, toGroupRows(view.Groups))
		}
		rows := make([]documentRow, len(view.Documents))
		for i := range view.Documents {
			rows[i] = toRow(&view.Documents[i])
		}
		return writeStructured(w, format, rows)
	}

	if len(view.Documents) == 0 {
		fmt.Fprintln(w, "No documents saved yet.")
		return nil
	}

	if view.DisplayType == domain.ListDisplayDomain {
		printGroups(w, view.Groups)
	} else {
		for i := range view.Documents {
			doc := &view.Documents[i]
			fmt.Fprintf(w, "  %s\n", doc.ID)
			fmt.Fprintf(w, "    Title: %s\n", doc.Title)
			fmt.Fprintf(w, "    URL:   %s\n", doc.Href)
			fmt.Fprintf(w, "    Size:  %.2f MB\n", doc.ContentSize)
			if !doc.CapturedAt.IsZero() {
				fmt.Fprintf(w, "    Saved: %s\n", doc.CapturedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "Total: %d documents\n", len(view.Documents))
	return nil
}

func printGroups(w io.Writer, groups []domain.DomainGroup) {
	for i := range groups {
		g := &groups[i]
		fmt.Fprintf(w, "%s (%d, %.2f MB)\n", g.Domain, len(g.Children), g.StyleSize)
		for j := range g.Children {
			fmt.Fprintf(w, "  %s  %s\n", g.Children[j].Path(), g.Children[j].Title)
		}
		fmt.Fprintln(w)
	}
}

func runGroups(cmd *cobra.Command, _ []string) error {
	if err := validFormat(groupFormat); err != nil {
		return err
	}
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	groups, err := libraryService.ListGroups(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to group documents: %w", err)
	}

	if groupFormat != formatText {
		return writeStructured(cmd.OutOrStdout(), groupFormat, toGroupRows(groups))
	}

	if len(groups) == 0 {
		cmd.Println("No documents saved yet.")
		return nil
	}
	for i := range groups {
		cmd.Printf("  %-32s %4d  %8.2f MB\n", groups[i].Domain, len(groups[i].Children), groups[i].StyleSize)
	}
	return nil
}
