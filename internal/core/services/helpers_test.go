package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/webstash/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// fakeCapturer returns a fixed page. When gate is set, Capture signals
// started and then waits for gate to close.
type fakeCapturer struct {
	page    domain.CapturedPage
	err     error
	calls   atomic.Int32
	last    driven.CaptureOptions
	mu      sync.Mutex
	started chan struct{}
	gate    chan struct{}
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{
		page: domain.CapturedPage{
			URL:   "https://example.com/posts/1",
			Title: "First post",
			HTML:  "<html><body><p>hello</p></body></html>",
		},
	}
}

func (c *fakeCapturer) Capture(_ context.Context, opts driven.CaptureOptions) (*domain.CapturedPage, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.last = opts
	c.mu.Unlock()

	if c.gate != nil {
		c.started <- struct{}{}
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	page := c.page
	if opts.URL != "" {
		page.URL = opts.URL
	}
	return &page, nil
}

func (c *fakeCapturer) lastOptions() driven.CaptureOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// backgroundTransport delivers messages to an in-process Background.
type backgroundTransport struct {
	bg *Background
}

func (t backgroundTransport) RoundTrip(ctx context.Context, msg domain.Message) (*domain.Response, error) {
	return t.bg.Deliver(ctx, msg)
}

// fixture wires a memory store, a library and a running background context.
type fixture struct {
	store     *memory.ObjectStore
	capturer  *fakeCapturer
	library   *LibraryService
	bg        *Background
	messenger *Messenger
	transfer  *TransferService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewObjectStore()
	capturer := newFakeCapturer()
	library := NewLibraryService(store, capturer)

	bg := NewBackground(domain.DefaultAppSettings().Messaging)
	library.RegisterHandlers(bg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bg.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	messenger := NewMessenger(backgroundTransport{bg: bg}, 2*time.Second)

	return &fixture{
		store:     store,
		capturer:  capturer,
		library:   library,
		bg:        bg,
		messenger: messenger,
		transfer:  NewTransferService(store, messenger, nil),
	}
}

// seed inserts documents directly into the store.
func (f *fixture) seed(t *testing.T, docs ...domain.Document) {
	t.Helper()
	for i := range docs {
		_, err := f.store.InsertDocument(context.Background(), &docs[i], nil)
		if err != nil {
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
