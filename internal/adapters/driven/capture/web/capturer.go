package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/logger"
)

// Ensure Capturer implements the interface.
var _ driven.PageCapturer = (*Capturer)(nil)

// maxPageBytes bounds the markup read for one page.
const maxPageBytes = 32 << 20

// Options configures a Capturer.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds each page or image fetch.
	Timeout time.Duration

	// RatePerSecond throttles fetches across all captures.
	RatePerSecond float64

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Capturer fetches pages over HTTP.
type Capturer struct {
	client    *http.Client
	limiter   *RateLimiter
	userAgent string
	timeout   time.Duration
	policy    *bluemonday.Policy
	log       logger.Logger
}

// New creates a capturer. Zero options take the defaults from
// domain.DefaultAppSettings.
func New(opts Options) *Capturer {
	defaults := domain.DefaultAppSettings().Capture
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaults.RatePerSecond
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}

	return &Capturer{
		client:    opts.Client,
		limiter:   NewRateLimiter(opts.RatePerSecond, 1),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		policy:    bluemonday.UGCPolicy(),
		log:       logger.With("capture"),
	}
}

// Capture fetches opts.URL and returns its markup and images. Article
// captures keep only the main content, sanitised; page captures keep the
// whole document.
func (c *Capturer) Capture(ctx context.Context, opts driven.CaptureOptions) (*domain.CapturedPage, error) {
	pageURL, err := parsePageURL(opts.URL)
	if err != nil {
		return nil, err
	}

	body, finalURL, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", finalURL, err)
	}

	page := &domain.CapturedPage{
		URL:   finalURL.String(),
		Title: findTitle(doc),
	}

	root := doc
	if opts.HandleType == domain.HandleTypeArticle {
		root = findArticle(doc)
	}

	imageURLs := resolveImages(root, baseURL(doc, finalURL))

	if opts.HandleType == domain.HandleTypeArticle {
		page.HTML = c.policy.Sanitize(renderNode(root))
	} else {
		page.HTML = renderNode(doc)
	}

	page.Images = make([]domain.CapturedImage, 0, len(imageURLs))
	for _, u := range imageURLs {
		img := domain.CapturedImage{URL: u}
		if opts.DownloadImages {
			img.Data, img.ContentType, err = c.fetchImage(ctx, u, opts.MaxImageBytes)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.log.Warn("image %s: %v", u, err)
			}
		}
		page.Images = append(page.Images, img)
	}

	c.log.Debug("captured %s (%d bytes, %d images)", page.URL, len(page.HTML), len(page.Images))
	return page, nil
}

func parsePageURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: no page url", domain.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url %q has no host", domain.ErrInvalidInput, raw)
	}
	return u, nil
}

// fetchPage returns the page markup and the URL it was served from after
// redirects.
func (c *Capturer) fetchPage(ctx context.Context, u *url.URL) (string, *url.URL, error) {
	res, cancel, err := c.get(ctx, u.String(), "text/html,application/xhtml+xml")
	if err != nil {
		return "", nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer cancel()
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if !strings.Contains(mediaType, "html") {
			return "", nil, fmt.Errorf("%w: %s is %s, not HTML", domain.ErrInvalidInput, u, mediaType)
		}
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return string(data), res.Request.URL, nil
}

// fetchImage downloads an image. Images larger than limit yield nil data
// and no error.
func (c *Capturer) fetchImage(ctx context.Context, u string, limit int64) ([]byte, string, error) {
	res, cancel, err := c.get(ctx, u, "image/*")
	if err != nil {
		return nil, "", err
	}
	defer cancel()
	defer res.Body.Close()

	contentType := res.Header.Get("Content-Type")
	if limit > 0 && res.ContentLength > limit {
		c.log.Debug("image %s is %d bytes, over the %d byte limit", u, res.ContentLength, limit)
		return nil, contentType, nil
	}

	reader := io.Reader(res.Body)
	if limit > 0 {
		reader = io.LimitReader(res.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && int64(len(data)) > limit {
		c.log.Debug("image %s exceeds the %d byte limit", u, limit)
		return nil, contentType, nil
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// get waits for the rate limiter and performs a GET bounded by the fetch
// timeout. The caller closes the body and then calls cancel.
func (c *Capturer) get(ctx context.Context, u, accept string) (*http.Response, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	res, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if res.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordTooManyRequests(res.Header)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		res.Body.Close()
		cancel()
		return nil, nil, &StatusError{URL: u, Code: res.StatusCode}
	}

	return res, cancel, nil
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
