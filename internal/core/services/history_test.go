package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

func TestHistory_EvictsOldest(t *testing.T) {
	h := newHistory(2, time.Minute)

	h.put(domain.Response{RequestID: "a", OK: true})
	h.put(domain.Response{RequestID: "b", OK: true})
	h.put(domain.Response{RequestID: "c", OK: true})

	_, ok := h.get("a")
	assert.False(t, ok)
	_, ok = h.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, h.len())
}

func TestHistory_Expires(t *testing.T) {
	now := time.Now()
	h := newHistory(8, time.Minute)
	h.now = func() time.Time { return now }

	h.put(domain.Response{RequestID: "a", OK: true})

	_, ok := h.get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = h.get("a")
	assert.False(t, ok)
}

func TestHistory_PutSameIDRefreshes(t *testing.T) {
	now := time.Now()
	h := newHistory(2, time.Minute)
	h.now = func() time.Time { return now }

	h.put(domain.Response{RequestID: "a", OK: true})
	now = now.Add(50 * time.Second)
	h.put(domain.Response{RequestID: "a", OK: true, Result: []byte(`1`)})
	now = now.Add(50 * time.Second)

	resp, ok := h.get("a")
	assert.True(t, ok)
	assert.Equal(t, `1`, string(resp.Result))
	assert.Equal(t, 1, h.len())
}
