// Package local delivers messages to a background dispatcher in the same
// process.
package local

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// Ensure Transport implements the interface.
var _ driven.Transport = (*Transport)(nil)

// Deliverer hands a message to the background context and waits for the
// response. services.Background satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, msg domain.Message) (*domain.Response, error)
}

// Transport is an in-process driven.Transport.
type Transport struct {
	target Deliverer
}

// New creates a transport that delivers to target.
func New(target Deliverer) *Transport {
	return &Transport{target: target}
}

// RoundTrip delivers a copy of msg, so sender and handler never share
// payload or result memory.
func (t *Transport) RoundTrip(ctx context.Context, msg domain.Message) (*domain.Response, error) {
	msg.Payload = clone(msg.Payload)

	resp, err := t.target.Deliver(ctx, msg)
	if err != nil {
		return nil, err
	}

	out := *resp
	out.Result = clone(resp.Result)
	return &out, nil
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
