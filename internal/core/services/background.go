package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/logger"
)

// ErrBackgroundStopped is returned by Deliver after Run has returned.
var ErrBackgroundStopped = errors.New("background context stopped")

// Handler executes one action. The returned value becomes the response result.
type Handler func(ctx context.Context, msg domain.Message) (any, error)

// Prepare does the slow, store-free part of a staged action. It runs on its
// own goroutine, concurrently with other messages.
type Prepare func(ctx context.Context, msg domain.Message) (any, error)

// Commit applies a prepared action. It runs on the dispatcher goroutine.
type Commit func(ctx context.Context, msg domain.Message, prepared any) (any, error)

// Background is the single authoritative context that executes mutations.
// Every store write is made by one dispatcher goroutine, so writes never run
// concurrently with each other. Staged actions prepare off the dispatcher
// and commit on it, so a slow prepare does not hold up other messages.
type Background struct {
	log      logger.Logger
	handlers map[domain.Action]handler
	history  *history
	inbox    chan delivery
	prepared chan preparedResult

	// inflight and runCtx are only touched by the dispatcher goroutine.
	inflight map[string][]chan domain.Response
	runCtx   context.Context

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

type handler struct {
	prepare Prepare
	commit  Commit
}

type delivery struct {
	ctx   context.Context
	msg   domain.Message
	reply chan domain.Response
}

type preparedResult struct {
	d     delivery
	value any
	err   error
}

// NewBackground creates a dispatcher that remembers acknowledged request ids
// according to settings.
func NewBackground(settings domain.MessagingSettings) *Background {
	defaults := domain.DefaultAppSettings().Messaging
	if settings.HistorySize <= 0 {
		settings.HistorySize = defaults.HistorySize
	}
	if settings.HistoryTTL <= 0 {
		settings.HistoryTTL = defaults.HistoryTTL
	}

	return &Background{
		log:      logger.With("background"),
		handlers: make(map[domain.Action]handler),
		history:  newHistory(settings.HistorySize, settings.HistoryTTL),
		inbox:    make(chan delivery),
		prepared: make(chan preparedResult),
		inflight: make(map[string][]chan domain.Response),
		done:     make(chan struct{}),
	}
}

// Register installs the handler for action, replacing any previous one.
// Handlers must be registered before Run is called.
func (b *Background) Register(action domain.Action, h Handler) {
	b.handlers[action] = handler{
		commit: func(ctx context.Context, msg domain.Message, _ any) (any, error) {
			return h(ctx, msg)
		},
	}
}

// RegisterStaged installs a two-step handler for action: prepare runs off
// the dispatcher, then commit runs on it with prepare's result. A request id
// delivered again while it is being prepared waits for the first outcome.
func (b *Background) RegisterStaged(action domain.Action, prepare Prepare, commit Commit) {
	b.handlers[action] = handler{prepare: prepare, commit: commit}
}

// Actions returns the registered actions.
func (b *Background) Actions() []domain.Action {
	actions := make([]domain.Action, 0, len(b.handlers))
	for a := range b.handlers {
		actions = append(actions, a)
	}
	return actions
}

// Run dispatches delivered messages until ctx ends.
func (b *Background) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("background context already running")
	}
	b.running = true
	b.mu.Unlock()
	defer close(b.done)

	b.runCtx = ctx
	b.log.Info("dispatching %d actions", len(b.handlers))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-b.inbox:
			b.dispatch(d)
		case p := <-b.prepared:
			b.finish(p.d, b.commit(p))
		}
	}
}

// Deliver hands msg to the dispatcher and waits for its response.
// If ctx ends first the response is dropped, but a handler that already
// started still runs to completion.
func (b *Background) Deliver(ctx context.Context, msg domain.Message) (*domain.Response, error) {
	if msg.RequestID == "" {
		return nil, fmt.Errorf("%w: message has no request id", domain.ErrInvalidInput)
	}

	d := delivery{ctx: ctx, msg: msg, reply: make(chan domain.Response, 1)}

	select {
	case b.inbox <- d:
	case <-b.done:
		return nil, ErrBackgroundStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-d.reply:
		return &resp, nil
	case <-ctx.Done():
		b.log.Debug("sender for %s gone, dropping response", msg.RequestID)
		return nil, ctx.Err()
	}
}

// dispatch runs on the dispatcher goroutine only.
func (b *Background) dispatch(d delivery) {
	msg := d.msg

	if resp, ok := b.history.get(msg.RequestID); ok {
		b.log.Debug("request %s already acknowledged, replaying response", msg.RequestID)
		d.reply <- resp
		return
	}

	// reply channels are buffered; a sender that gave up never blocks the loop.
	if waiters, ok := b.inflight[msg.RequestID]; ok {
		b.log.Debug("request %s in flight, waiting for it", msg.RequestID)
		b.inflight[msg.RequestID] = append(waiters, d.reply)
		return
	}

	h, ok := b.handlers[msg.Action]
	if !ok {
		b.log.Warn("no handler for action %q (request %s)", msg.Action, msg.RequestID)
		d.reply <- failure(msg.RequestID, fmt.Errorf("%w: %q", domain.ErrUnknownAction, msg.Action))
		return
	}

	b.log.Debug("handling %s (request %s)", msg.Action, msg.RequestID)
	b.inflight[msg.RequestID] = []chan domain.Response{d.reply}

	if h.prepare == nil {
		b.finish(d, b.respond(d, h.commit, nil))
		return
	}

	// Values come from the sender, cancellation from Run: a torn-down sender
	// cannot interrupt the prepare, stopping the dispatcher does.
	ctx, cancel := context.WithCancel(context.WithoutCancel(d.ctx))
	stop := context.AfterFunc(b.runCtx, cancel)
	go func() {
		defer cancel()
		defer stop()
		value, err := h.prepare(ctx, msg)
		select {
		case b.prepared <- preparedResult{d: d, value: value, err: err}:
		case <-b.done:
		}
	}()
}

// commit runs the commit step of a prepared staged action.
func (b *Background) commit(p preparedResult) domain.Response {
	msg := p.d.msg
	if p.err != nil {
		b.log.Error("%s failed (request %s): %v", msg.Action, msg.RequestID, p.err)
		return failure(msg.RequestID, p.err)
	}
	h, ok := b.handlers[msg.Action]
	if !ok {
		return failure(msg.RequestID, fmt.Errorf("%w: %q", domain.ErrUnknownAction, msg.Action))
	}
	return b.respond(p.d, h.commit, p.value)
}

// respond runs commit and turns its outcome into a response.
func (b *Background) respond(d delivery, commit Commit, prepared any) domain.Response {
	msg := d.msg

	// Detached from the sender so a torn-down sender cannot interrupt a write.
	result, err := commit(context.WithoutCancel(d.ctx), msg, prepared)
	if err != nil {
		b.log.Error("%s failed (request %s): %v", msg.Action, msg.RequestID, err)
		return failure(msg.RequestID, err)
	}

	resp := domain.Response{RequestID: msg.RequestID, OK: true}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return failure(msg.RequestID, fmt.Errorf("encoding result: %w", err))
		}
		resp.Result = data
	}
	return resp
}

// finish remembers a successful response and hands it to every sender
// waiting on the request id. Only successes are remembered; a failed
// request may be retried.
func (b *Background) finish(d delivery, resp domain.Response) {
	if resp.OK {
		b.history.put(resp)
	}
	for _, reply := range b.inflight[d.msg.RequestID] {
		reply <- resp
	}
	delete(b.inflight, d.msg.RequestID)
}

func failure(requestID string, err error) domain.Response {
	return domain.Response{
		RequestID: requestID,
		OK:        false,
		Code:      domain.ErrorCode(err),
		Error:     err.Error(),
	}
}

// decodePayload unmarshals a message payload into v.
func decodePayload(msg domain.Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", domain.ErrInvalidInput, msg.Action)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: decoding %s payload: %v", domain.ErrInvalidInput, msg.Action, err)
	}
	return nil
}
