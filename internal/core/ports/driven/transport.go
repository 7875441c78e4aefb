package driven

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// Transport carries a message to the background context and returns its
// response. Implementations must return ctx.Err() when ctx ends first.
type Transport interface {
	RoundTrip(ctx context.Context, msg domain.Message) (*domain.Response, error)
}
