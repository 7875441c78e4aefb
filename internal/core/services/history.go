package services

import (
	"time"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// history remembers recently acknowledged responses by request id.
// It holds at most size entries, each for at most ttl.
// Only the dispatcher goroutine touches it.
type history struct {
	size    int
	ttl     time.Duration
	now     func() time.Time
	entries map[string]historyEntry
	order   []string
}

type historyEntry struct {
	response domain.Response
	expires  time.Time
}

func newHistory(size int, ttl time.Duration) *history {
	return &history{
		size:    size,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]historyEntry, size),
	}
}

// get returns the remembered response for requestID, if still fresh.
func (h *history) get(requestID string) (domain.Response, bool) {
	e, ok := h.entries[requestID]
	if !ok {
		return domain.Response{}, false
	}
	if h.now().After(e.expires) {
		return domain.Response{}, false
	}
	return e.response, true
}

// put remembers resp, evicting the oldest entries beyond size.
func (h *history) put(resp domain.Response) {
	if _, ok := h.entries[resp.RequestID]; !ok {
		h.order = append(h.order, resp.RequestID)
	}
	h.entries[resp.RequestID] = historyEntry{
		response: resp,
		expires:  h.now().Add(h.ttl),
	}

	for len(h.order) > h.size {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.entries, oldest)
	}
}

// len returns the number of remembered entries, expired or not.
func (h *history) len() int {
	return len(h.entries)
}
