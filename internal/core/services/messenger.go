package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
)

// Ensure Messenger implements the interface.
var _ driving.LibraryCommands = (*Messenger)(nil)

// Messenger sends actions from a UI context to the background context.
// It never retries; retry policy belongs to the caller, which can resend
// a message with the same request id through SendMessage.
type Messenger struct {
	transport driven.Transport
	timeout   time.Duration
	newID     func() string
}

// NewMessenger creates a messenger that waits at most timeout per request.
func NewMessenger(transport driven.Transport, timeout time.Duration) *Messenger {
	if timeout <= 0 {
		timeout = domain.DefaultAppSettings().Messaging.Timeout
	}
	return &Messenger{
		transport: transport,
		timeout:   timeout,
		newID:     newRequestID,
	}
}

func newRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewMessage builds a message with a fresh request id.
func (m *Messenger) NewMessage(action domain.Action, payload any) (domain.Message, error) {
	msg := domain.Message{Action: action, RequestID: m.newID()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return domain.Message{}, fmt.Errorf("encoding %s payload: %w", action, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// Send builds a message for action and sends it.
func (m *Messenger) Send(ctx context.Context, action domain.Action, payload any) (*domain.Response, error) {
	msg, err := m.NewMessage(action, payload)
	if err != nil {
		return nil, err
	}
	return m.SendMessage(ctx, msg)
}

// SendMessage sends msg and waits for its single response.
// A failed response is returned together with its error.
func (m *Messenger) SendMessage(ctx context.Context, msg domain.Message) (*domain.Response, error) {
	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.transport.RoundTrip(sendCtx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %s", domain.ErrMessageTimeout, msg.Action, m.timeout)
		}
		return nil, fmt.Errorf("sending %s: %w", msg.Action, err)
	}
	if resp.RequestID != msg.RequestID {
		return nil, fmt.Errorf("response for %q answered request %q", resp.RequestID, msg.RequestID)
	}

	return resp, resp.Err()
}

// call sends action and decodes a successful result into out.
func (m *Messenger) call(ctx context.Context, action domain.Action, payload, out any) error {
	resp, err := m.Send(ctx, action, payload)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// SaveDocument asks the background context to capture and store a page.
func (m *Messenger) SaveDocument(ctx context.Context, payload domain.SavePayload) (*domain.Document, error) {
	var doc domain.Document
	if err := m.call(ctx, domain.ActionSaveDocument, payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocuments asks the background context to remove documents.
func (m *Messenger) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	var result domain.DeleteResult
	if err := m.call(ctx, domain.ActionDeleteDocuments, domain.DeletePayload{IDs: ids}, &result); err != nil {
		return 0, err
	}
	return result.Deleted, nil
}

// UpdateConfig asks the background context to merge a config patch.
func (m *Messenger) UpdateConfig(ctx context.Context, patch domain.ConfigPatch) (domain.GlobalConfig, error) {
	var cfg domain.GlobalConfig
	if err := m.call(ctx, domain.ActionUpdateConfig, patch, &cfg); err != nil {
		return domain.GlobalConfig{}, err
	}
	return cfg, nil
}

// ApplyImport asks the background context to merge an envelope.
func (m *Messenger) ApplyImport(ctx context.Context, env domain.Envelope) (domain.ImportResult, error) {
	var result domain.ImportResult
	if err := m.call(ctx, domain.ActionApplyImport, env, &result); err != nil {
		return domain.ImportResult{}, err
	}
	return result, nil
}
