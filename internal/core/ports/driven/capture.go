package driven

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// CaptureOptions tells a capturer what to keep.
type CaptureOptions struct {
	// HandleType is page or article.
	HandleType domain.HandleType

	// URL is the page to capture, for capturers that do not track a
	// current tab.
	URL string

	// DownloadImages is true when image bytes should be fetched.
	DownloadImages bool

	// MaxImageBytes drops downloaded images larger than this.
	MaxImageBytes int64
}

// PageCapturer captures the current page.
// The core stores the result without interpreting the markup.
type PageCapturer interface {
	Capture(ctx context.Context, opts CaptureOptions) (*domain.CapturedPage, error)
}
