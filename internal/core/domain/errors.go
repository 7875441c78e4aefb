package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Callers treat it as an empty result, never as a user-facing failure.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCancelled indicates the user dismissed a picker or prompt.
	ErrCancelled = errors.New("cancelled")

	// Storage Errors.

	// ErrStorageUnavailable indicates the underlying medium is inaccessible.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrQuotaExceeded indicates a write was rejected for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// Import Errors.

	// ErrMalformed indicates import text is not valid JSON.
	ErrMalformed = errors.New("malformed import data")

	// ErrSchemaMismatch indicates import data has the wrong top-level shape.
	ErrSchemaMismatch = errors.New("import schema mismatch")

	// Messaging Errors.

	// ErrUnknownAction indicates no handler is registered for an action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMessageTimeout indicates no response arrived within the send timeout.
	ErrMessageTimeout = errors.New("message timeout")
)

// Wire codes for errors carried inside a Response.
const (
	CodeNotFound           = "not_found"
	CodeAlreadyExists      = "already_exists"
	CodeInvalidInput       = "invalid_input"
	CodeStorageUnavailable = "storage_unavailable"
	CodeQuotaExceeded      = "quota_exceeded"
	CodeMalformed          = "malformed"
	CodeSchemaMismatch     = "schema_mismatch"
	CodeUnknownAction      = "unknown_action"
	CodeInternal           = "internal"
)

var codeErrors = []struct {
	code string
	err  error
}{
	{CodeNotFound, ErrNotFound},
	{CodeAlreadyExists, ErrAlreadyExists},
	{CodeInvalidInput, ErrInvalidInput},
	{CodeStorageUnavailable, ErrStorageUnavailable},
	{CodeQuotaExceeded, ErrQuotaExceeded},
	{CodeMalformed, ErrMalformed},
	{CodeSchemaMismatch, ErrSchemaMismatch},
	{CodeUnknownAction, ErrUnknownAction},
}

// ErrorCode returns the wire code for err, or CodeInternal when err does not
// wrap a known domain error.
func ErrorCode(err error) string {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeInternal
}

// ErrorFromCode returns the sentinel for a wire code, or nil for unknown codes.
func ErrorFromCode(code string) error {
	for _, ce := range codeErrors {
		if ce.code == code {
			return ce.err
		}
	}
	return nil
}
