package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/webstash/internal/adapters/driven/config/file"
	"github.com/custodia-labs/webstash/internal/adapters/driven/messaging/local"
	"github.com/custodia-labs/webstash/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/services"
	webrenderers "github.com/custodia-labs/webstash/internal/renderers"
)

// stubCapturer returns a small page for whatever URL it is asked for.
type stubCapturer struct{}

func (stubCapturer) Capture(_ context.Context, opts driven.CaptureOptions) (*domain.CapturedPage, error) {
	return &domain.CapturedPage{
		URL:   opts.URL,
		Title: "Captured " + opts.URL,
		HTML:  "<html><body><p>" + string(opts.HandleType) + "</p></body></html>",
	}, nil
}

// testEnv is the set of real services the commands run against.
type testEnv struct {
	store    *memory.ObjectStore
	settings *services.SettingsService
}

// setupTestServices wires a memory store, a running background dispatcher
// and the services the commands use, and restores the package state when
// the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	oldLibrary, oldCommands, oldTransfer := libraryService, commandService, transferService
	oldSettings, oldPicker, oldWatcher, oldBackground := settingsService, importPicker, storeWatcher, background
	oldConfirm, oldRenderers := confirmInput, renderers

	store := memory.NewObjectStore()
	library := services.NewLibraryService(store, stubCapturer{})

	bg := services.NewBackground(domain.DefaultAppSettings().Messaging)
	library.RegisterHandlers(bg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bg.Run(ctx)
	}()

	messenger := services.NewMessenger(local.New(bg), 2*time.Second)
	picker := file.NewPicker(strings.NewReader(""), new(bytes.Buffer))
	settings := services.NewSettingsService(memory.NewConfigStore())

	libraryService = library
	commandService = messenger
	transferService = services.NewTransferService(store, messenger, picker)
	settingsService = settings
	importPicker = picker
	storeWatcher = nil
	renderers = webrenderers.Default()
	background = bg

	resetFlags()

	t.Cleanup(func() {
		cancel()
		<-done
		libraryService, commandService, transferService = oldLibrary, oldCommands, oldTransfer
		settingsService, importPicker, storeWatcher, background = oldSettings, oldPicker, oldWatcher, oldBackground
		confirmInput, renderers = oldConfirm, oldRenderers
		resetFlags()
	})

	return &testEnv{store: store, settings: settings}
}

// seed inserts documents straight into the store.
func (e *testEnv) seed(t *testing.T, docs ...domain.Document) {
	t.Helper()
	for i := range docs {
		if _, err := e.store.InsertDocument(context.Background(), &docs[i], nil); err != nil {
			t.Fatalf("seeding %s: %v", docs[i].ID, err)
		}
	}
}

func sampleDoc(id, host string, size float64, at time.Time) domain.Document {
	return domain.Document{
		ID:          id,
		Title:       "Title " + id,
		Href:        "https://" + host + "/" + id,
		Domain:      host,
		ContentSize: size,
		CapturedAt:  at,
		HandleType:  domain.HandleTypePage,
		Content:     "<p>" + id + "</p>",
	}
}

// resetFlags restores every flag variable to its default. pflag keeps
// parsed values between executions.
func resetFlags() {
	verbose = false
	saveArticle = false
	listFormat = formatText
	listWatch = false
	groupFormat = formatText
	deleteAll = false
	deleteYes = false
	exportAll = false
	exportOutput = ""
	showAs = "markdown"
	serveAddr = ""
	serveMCPPort = 0
	manageExportDir = ""
}

// resetContexts clears the contexts cobra stored on subcommands during an
// earlier execution so they inherit the next one.
func resetContexts(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		sub.SetContext(nil) //nolint:staticcheck // nil makes cobra inherit the parent context
		resetContexts(sub)
	}
}

// runCommand executes the root command with args and returns everything it
// printed.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	resetContexts(rootCmd)
	err := rootCmd.ExecuteContext(context.Background())
	resetFlags()
	return buf.String(), err
}
