package driving

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// TransferService moves documents in and out as JSON envelopes.
type TransferService interface {
	// ExportSubset gathers the named documents and all their resources.
	ExportSubset(ctx context.Context, ids []string) (*domain.Envelope, error)

	// Serialize renders an envelope as UTF-8 JSON.
	Serialize(env *domain.Envelope) ([]byte, error)

	// ParseEnvelope validates untrusted import text.
	ParseEnvelope(raw string) (*domain.ParsedEnvelope, error)

	// ImportFile picks a .json file, parses it and applies the valid records.
	ImportFile(ctx context.Context) (*ImportReport, error)
}

// ImportReport is the outcome of ImportFile.
type ImportReport struct {
	File     string
	Result   domain.ImportResult
	Rejected []domain.RejectedRecord
}
