package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

func TestNew_Endpoint(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:7777/v1/messages", New("127.0.0.1:7777", nil).Endpoint())
	assert.Equal(t, "https://stash.local/v1/messages", New("https://stash.local/", nil).Endpoint())
}

func TestTransport_RoundTrip(t *testing.T) {
	var got domain.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, MessagesPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.Response{ //nolint:errcheck
			RequestID: got.RequestID,
			OK:        false,
			Code:      domain.CodeUnknownAction,
			Error:     "unknown action: \"Nope\"",
		})
	}))
	defer srv.Close()

	tr := New(srv.URL, srv.Client())
	resp, err := tr.RoundTrip(context.Background(), domain.Message{Action: "Nope", RequestID: "r-1"})

	require.NoError(t, err)
	assert.Equal(t, domain.Action("Nope"), got.Action)
	assert.Equal(t, "r-1", resp.RequestID)
	assert.False(t, resp.OK)
	assert.ErrorIs(t, resp.Err(), domain.ErrUnknownAction)
}

func TestTransport_RoundTrip_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "background context stopped", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).RoundTrip(context.Background(), domain.Message{Action: "a", RequestID: "r"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "background context stopped")
}

func TestTransport_RoundTrip_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json")) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).RoundTrip(context.Background(), domain.Message{Action: "a", RequestID: "r"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestTransport_RoundTrip_Deadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, srv.Client()).RoundTrip(ctx, domain.Message{Action: "a", RequestID: "r"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
