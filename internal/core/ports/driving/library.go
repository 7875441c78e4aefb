package driving

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// LibraryService reads the document library directly from the store.
// Reads may be stale; callers re-query to refresh.
type LibraryService interface {
	// ListDocuments returns all documents, oldest capture first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListGroups returns documents grouped by domain.
	ListGroups(ctx context.Context) ([]domain.DomainGroup, error)

	// GetConfig returns the global config.
	GetConfig(ctx context.Context) (domain.GlobalConfig, error)
}

// LibraryCommands requests mutations from the background context.
type LibraryCommands interface {
	// SaveDocument captures the current page and stores it.
	SaveDocument(ctx context.Context, payload domain.SavePayload) (*domain.Document, error)

	// DeleteDocuments removes documents and their resources.
	DeleteDocuments(ctx context.Context, ids []string) (int, error)

	// UpdateConfig merges patch into the global config.
	UpdateConfig(ctx context.Context, patch domain.ConfigPatch) (domain.GlobalConfig, error)

	// ApplyImport merges a validated envelope into the store.
	ApplyImport(ctx context.Context, env domain.Envelope) (domain.ImportResult, error)
}
