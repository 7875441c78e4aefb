// Command webstash saves web pages for offline reading.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/webstash/internal/adapters/driven/capture/web"
	"github.com/custodia-labs/webstash/internal/adapters/driven/config/file"
	"github.com/custodia-labs/webstash/internal/adapters/driven/messaging/local"
	"github.com/custodia-labs/webstash/internal/adapters/driven/messaging/remote"
	"github.com/custodia-labs/webstash/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/webstash/internal/adapters/driven/watch"
	"github.com/custodia-labs/webstash/internal/adapters/driving/cli"
	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/services"
	"github.com/custodia-labs/webstash/internal/logger"
	"github.com/custodia-labs/webstash/internal/renderers"
)

// version is set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, "", os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the application from the config in configDir (the default
// location when empty) and executes the command named by args.
func run(ctx context.Context, configDir string, args []string) error {
	log := logger.With("main")
	cli.SetVersion(version)

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "webstash: loading config: %v\n", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "webstash: reading settings: %v\n", err)
		return err
	}

	// Without the library every write would be lost, so there is no fallback.
	store, err := sqlite.NewStore(settings.Storage.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "webstash: opening library: %v\n", err)
		return fmt.Errorf("opening library: %w", err)
	}
	defer store.Close()
	objectStore := store.ObjectStore()

	var watcher driven.StoreWatcher
	w, err := watch.New(filepath.Dir(store.Path()), watch.WithPrefix(filepath.Base(store.Path())))
	if err != nil {
		log.Warn("library watcher unavailable: %v", err)
	} else {
		defer w.Close()
		watcher = w
	}

	capturer := web.New(web.Options{
		UserAgent:     settings.Capture.UserAgent,
		Timeout:       settings.Capture.Timeout,
		RatePerSecond: settings.Capture.RatePerSecond,
	})
	library := services.NewLibraryService(objectStore, capturer)

	bg := services.NewBackground(settings.Messaging)
	library.RegisterHandlers(bg)

	messenger := services.NewMessenger(newTransport(settings, bg), settings.Messaging.Timeout)
	picker := file.NewPicker(os.Stdin, os.Stderr)

	return cli.Execute(ctx, cli.Services{
		Library:    library,
		Commands:   messenger,
		Transfer:   services.NewTransferService(objectStore, messenger, picker),
		Settings:   settingsService,
		Picker:     picker,
		Watcher:    watcher,
		Renderers:  renderers.Default(),
		Background: bg,
		Args:       args,
	})
}

// newTransport sends mutations to the daemon at server.addr when one is
// configured, and to the in-process dispatcher otherwise.
func newTransport(settings *domain.AppSettings, bg *services.Background) driven.Transport {
	if settings.Server.Addr == "" {
		return local.New(bg)
	}
	return remote.New(settings.Server.Addr, &http.Client{})
}
