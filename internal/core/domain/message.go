package domain

import (
	"encoding/json"
	"fmt"
)

// Action names a request the background context knows how to execute.
type Action string

// Actions understood by the background context.
const (
	// ActionSaveDocument captures a page and stores it.
	ActionSaveDocument Action = "SaveDocument"

	// ActionDeleteDocuments removes documents and their resources.
	ActionDeleteDocuments Action = "DeleteDocuments"

	// ActionUpdateConfig merges a ConfigPatch into the global config.
	ActionUpdateConfig Action = "UpdateConfig"

	// ActionApplyImport merges a validated Envelope into the store.
	ActionApplyImport Action = "ApplyImport"
)

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// Message is the request envelope passed between contexts.
type Message struct {
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId"`
}

// Response answers exactly one Message.
type Response struct {
	RequestID string          `json:"requestId"`
	OK        bool            `json:"ok"`
	Code      string          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// Err converts a failed response back into an error wrapping the matching
// domain sentinel. It returns nil for successful responses.
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = fmt.Sprintf("request %s failed", r.RequestID)
	}
	return &RemoteError{Code: r.Code, Message: msg}
}

// RemoteError is a failure reported by the background context.
// It unwraps to the domain sentinel named by Code.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap returns the domain sentinel for Code, if any.
func (e *RemoteError) Unwrap() error {
	return ErrorFromCode(e.Code)
}

// Decode unmarshals the response result into v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decoding %s result: %w", r.RequestID, err)
	}
	return nil
}

// SavePayload is the payload of ActionSaveDocument.
type SavePayload struct {
	HandleType HandleType `json:"handleType"`

	// URL identifies the current page for capturers that cannot see it.
	URL string `json:"url,omitempty"`
}

// DeletePayload is the payload of ActionDeleteDocuments.
type DeletePayload struct {
	IDs []string `json:"ids"`
}

// DeleteResult is the result of ActionDeleteDocuments.
type DeleteResult struct {
	Deleted int `json:"deleted"`
}
