package renderers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/renderers/markdown"
	"github.com/custodia-labs/webstash/internal/renderers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.RendererRegistry = (*Registry)(nil)

// Registry maps format names to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]driven.Renderer
}

// NewRegistry creates a registry holding rs. A later renderer replaces an
// earlier one with the same format.
func NewRegistry(rs ...driven.Renderer) *Registry {
	r := &Registry{renderers: make(map[string]driven.Renderer, len(rs))}
	for _, renderer := range rs {
		r.Register(renderer)
	}
	return r
}

// Default returns a registry with the markdown and plain text renderers.
func Default() *Registry {
	return NewRegistry(markdown.New(), plaintext.New())
}

// Register adds or replaces a renderer.
func (r *Registry) Register(renderer driven.Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[strings.ToLower(renderer.Format())] = renderer
}

// Get returns the renderer for format. Lookup ignores case.
func (r *Registry) Get(format string) (driven.Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown render format %q", domain.ErrInvalidInput, format)
	}
	return renderer, nil
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}
