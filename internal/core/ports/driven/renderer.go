package driven

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// Renderer turns a stored document's captured markup into another format
// for reading outside a browser.
type Renderer interface {
	// Format is the name callers select the renderer by, e.g. "markdown".
	Format() string

	// Render converts doc.Content. Links and images are resolved against
	// doc.Href.
	Render(ctx context.Context, doc *domain.Document) (string, error)
}

// RendererRegistry looks renderers up by format.
type RendererRegistry interface {
	// Get returns the renderer for format, or an error wrapping
	// domain.ErrInvalidInput if there is none.
	Get(format string) (Renderer, error)

	// Formats lists the registered formats in sorted order.
	Formats() []string
}
