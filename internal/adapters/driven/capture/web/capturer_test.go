package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title> Hello World </title></head>
<body>
  <nav><a href="/">Home</a><img src="/logo.png"></nav>
  <article>
    <h1>Post</h1>
    <p>Body text</p>
    <img src="images/a.png">
    <img src="http://127.0.0.1:1/b.jpg#frag">
    <img src="images/a.png">
    <img src="data:image/png;base64,AAAA">
    <script>alert(1)</script>
  </article>
</body>
</html>`

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 100)...)

type site struct {
	srv   *httptest.Server
	hits  atomic.Int32
	agent atomic.Value
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{}
	mux := http.NewServeMux()
	mux.HandleFunc("/posts/1", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.agent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPage)) //nolint:errcheck
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts/1", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/posts/images/a.png", func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		w.Write(pngBytes) //nolint:errcheck
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte{2}, 4096)) //nolint:errcheck
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF")) //nolint:errcheck
	})
	mux.HandleFunc("/busy", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func newTestCapturer(s *site) *Capturer {
	return New(Options{
		UserAgent:     "webstash-test",
		Timeout:       5 * time.Second,
		RatePerSecond: 1000,
		Client:        s.srv.Client(),
	})
}

func TestCapture_Page(t *testing.T) {
	s := newSite(t)
	c := newTestCapturer(s)

	page, err := c.Capture(context.Background(), driven.CaptureOptions{
		HandleType: domain.HandleTypePage,
		URL:        s.srv.URL + "/posts/1",
	})
	require.NoError(t, err)

	assert.Equal(t, s.srv.URL+"/posts/1", page.URL)
	assert.Equal(t, "Hello World", page.Title)
	assert.Contains(t, page.HTML, "<nav>")
	assert.Contains(t, page.HTML, "<script>")
	assert.Contains(t, page.HTML, `src="`+s.srv.URL+`/posts/images/a.png"`)
	assert.Equal(t, "webstash-test", s.agent.Load())

	urls := make([]string, len(page.Images))
	for i, img := range page.Images {
		urls[i] = img.URL
		assert.Nil(t, img.Data)
	}
	assert.Equal(t, []string{
		s.srv.URL + "/logo.png",
		s.srv.URL + "/posts/images/a.png",
		"http://127.0.0.1:1/b.jpg",
	}, urls)
}

func TestCapture_Article(t *testing.T) {
	s := newSite(t)
	c := newTestCapturer(s)

	page, err := c.Capture(context.Background(), driven.CaptureOptions{
		HandleType: domain.HandleTypeArticle,
		URL:        s.srv.URL + "/posts/1",
	})
	require.NoError(t, err)

	assert.Contains(t, page.HTML, "Body text")
	assert.NotContains(t, page.HTML, "Home")
	assert.NotContains(t, page.HTML, "alert(1)")
	require.Len(t, page.Images, 2)
	assert.Equal(t, s.srv.URL+"/posts/images/a.png", page.Images[0].URL)
}

func TestCapture_DownloadImages(t *testing.T) {
	s := newSite(t)
	c := newTestCapturer(s)

	page, err := c.Capture(context.Background(), driven.CaptureOptions{
		HandleType:     domain.HandleTypePage,
		URL:            s.srv.URL + "/posts/1",
		DownloadImages: true,
		MaxImageBytes:  1024,
	})
	require.NoError(t, err)
	require.Len(t, page.Images, 3)

	// Over the limit.
	assert.Nil(t, page.Images[0].Data)

	// Sniffed content type.
	assert.Equal(t, pngBytes, page.Images[1].Data)
	assert.Equal(t, "image/png", page.Images[1].ContentType)

	// Unreachable host is skipped, not fatal.
	assert.Nil(t, page.Images[2].Data)
}

func TestCapture_FollowsRedirects(t *testing.T) {
	s := newSite(t)
	c := newTestCapturer(s)

	page, err := c.Capture(context.Background(), driven.CaptureOptions{
		HandleType: domain.HandleTypePage,
		URL:        s.srv.URL + "/old",
	})
	require.NoError(t, err)
	assert.Equal(t, s.srv.URL+"/posts/1", page.URL)
}

func TestCapture_Errors(t *testing.T) {
	s := newSite(t)
	c := newTestCapturer(s)
	ctx := context.Background()

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"empty url", "", domain.ErrInvalidInput},
		{"unsupported scheme", "ftp://example.com/x", domain.ErrInvalidInput},
		{"no host", "http:///path", domain.ErrInvalidInput},
		{"not html", s.srv.URL + "/file.pdf", domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Capture(ctx, driven.CaptureOptions{HandleType: domain.HandleTypePage, URL: tt.url})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	t.Run("not found", func(t *testing.T) {
		_, err := c.Capture(ctx, driven.CaptureOptions{HandleType: domain.HandleTypePage, URL: s.srv.URL + "/missing"})
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusNotFound))
	})

	t.Run("too many requests sets backoff", func(t *testing.T) {
		_, err := c.Capture(ctx, driven.CaptureOptions{HandleType: domain.HandleTypePage, URL: s.srv.URL + "/busy"})
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	})
}

func TestCapture_CancelledContext(t *testing.T) {
	s := newSite(t)
	c := newTestCapturer(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Capture(ctx, driven.CaptureOptions{HandleType: domain.HandleTypePage, URL: s.srv.URL + "/posts/1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.hits.Load())
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst then throttle", func(t *testing.T) {
		r := NewRateLimiter(1, 1)
		assert.True(t, r.Allow())
		assert.False(t, r.Allow())
	})

	t.Run("backoff blocks", func(t *testing.T) {
		r := NewRateLimiter(1000, 1)
		h := http.Header{}
		h.Set("Retry-After", "60")
		r.RecordTooManyRequests(h)
		assert.False(t, r.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
	})

	t.Run("zero retry-after clears immediately", func(t *testing.T) {
		r := NewRateLimiter(1000, 1)
		h := http.Header{}
		h.Set("Retry-After", "0")
		r.RecordTooManyRequests(h)
		require.NoError(t, r.Wait(context.Background()))
	})
}

func TestExtract_BaseHref(t *testing.T) {
	const page = `<html><head><base href="https://static.example.com/assets/"></head>
<body><img src="x.png"></body></html>`

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page)) //nolint:errcheck
	}))
	defer s.Close()

	c := New(Options{RatePerSecond: 1000, Client: s.Client()})
	got, err := c.Capture(context.Background(), driven.CaptureOptions{HandleType: domain.HandleTypePage, URL: s.URL})
	require.NoError(t, err)

	require.Len(t, got.Images, 1)
	assert.Equal(t, "https://static.example.com/assets/x.png", got.Images[0].URL)
	assert.True(t, strings.Contains(got.HTML, "https://static.example.com/assets/x.png"))
}
