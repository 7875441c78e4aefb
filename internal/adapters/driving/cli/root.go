// Package cli provides the webstash command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
	"github.com/custodia-labs/webstash/internal/core/services"
	"github.com/custodia-labs/webstash/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// PathPresetter lets the import command hand a path to the file picker.
type PathPresetter interface {
	Preset(path string)
}

// Services holds everything the commands need. Optional fields may be nil;
// commands that need a missing service report it.
type Services struct {
	Library    driving.LibraryService
	Commands   driving.LibraryCommands
	Transfer   driving.TransferService
	Settings   driving.SettingsService
	Picker     PathPresetter
	Watcher    driven.StoreWatcher
	Renderers  driven.RendererRegistry
	Background *services.Background
	// Args overrides os.Args[1:] when non-nil.
	Args []string
}

// Service instances injected by Execute.
var (
	libraryService  driving.LibraryService
	commandService  driving.LibraryCommands
	transferService driving.TransferService
	settingsService driving.SettingsService
	importPicker    PathPresetter
	storeWatcher    driven.StoreWatcher
	renderers       driven.RendererRegistry
	background      *services.Background
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "webstash",
	Short: "Save web pages and articles for offline reading",
	Long: `webstash captures web pages or just their main article, stores them with
their images, and lets you browse, group, export and import your library.

Mutations are executed by a single background dispatcher: in-process by
default, or a daemon started with "webstash serve" when server.addr is set.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to stderr")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. The background dispatcher, if provided,
// runs alongside the command and stops when the command returns.
func Execute(ctx context.Context, svc Services) error {
	libraryService = svc.Library
	commandService = svc.Commands
	transferService = svc.Transfer
	settingsService = svc.Settings
	importPicker = svc.Picker
	storeWatcher = svc.Watcher
	renderers = svc.Renderers
	background = svc.Background

	if svc.Args != nil {
		rootCmd.SetArgs(svc.Args)
	}

	if background == nil {
		return rootCmd.ExecuteContext(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := background.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		return rootCmd.ExecuteContext(gctx)
	})
	return g.Wait()
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
