// Package remote sends messages to a background daemon over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// Ensure Transport implements the interface.
var _ driven.Transport = (*Transport)(nil)

// MessagesPath is the endpoint messages are posted to.
const MessagesPath = "/v1/messages"

// maxErrorBody bounds how much of a non-JSON error body is quoted.
const maxErrorBody = 512

// Transport posts messages to a daemon and decodes its responses.
type Transport struct {
	endpoint string
	client   *http.Client
}

// New creates a transport for the daemon at addr ("host:port" or a URL).
// If client is nil, http.DefaultClient is used; the messenger bounds each
// request with its own timeout.
func New(addr string, client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Transport{
		endpoint: strings.TrimSuffix(base, "/") + MessagesPath,
		client:   client,
	}
}

// Endpoint returns the URL messages are posted to.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// RoundTrip posts msg and returns the daemon's response.
func (t *Transport) RoundTrip(ctx context.Context, msg domain.Message) (*domain.Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, fmt.Errorf("daemon returned %s: %s", res.Status, strings.TrimSpace(string(snippet)))
	}

	var resp domain.Response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}
