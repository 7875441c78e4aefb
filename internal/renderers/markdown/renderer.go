// Package markdown renders captured pages as CommonMark.
package markdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.Renderer = (*Renderer)(nil)

// Format is the name this renderer is registered under.
const Format = "markdown"

// Renderer converts HTML to Markdown. A Renderer is safe for concurrent use.
type Renderer struct {
	conv *converter.Converter
}

// New creates a markdown renderer with table support.
func New() *Renderer {
	return &Renderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Format returns "markdown".
func (r *Renderer) Format() string {
	return Format
}

// Render converts the document's HTML. Relative links become absolute
// against the document's href.
func (r *Renderer) Render(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	md, err := r.conv.ConvertString(doc.Content, converter.WithDomain(doc.Href))
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", doc.ID, err)
	}

	md = strings.TrimSpace(md)
	if doc.Title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + doc.Title + "\n\n" + md
	}
	return md + "\n", nil
}
