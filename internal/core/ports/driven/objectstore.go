package driven

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// Persisted collection names.
const (
	CollectionDocuments = "documents"
	CollectionResources = "resources"
	CollectionConfig    = "config"
)

// ObjectStore persists documents, their resources and the global config.
// Every write is durable before it returns and is all-or-nothing.
// Storage failures wrap domain.ErrStorageUnavailable or domain.ErrQuotaExceeded.
type ObjectStore interface {
	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, oldest capture first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// InsertDocument stores a new document together with its resources.
	// Returns domain.ErrAlreadyExists, and writes nothing, if the id is taken.
	// Resources whose id is already stored are skipped; the number of
	// resources actually inserted is returned.
	InsertDocument(ctx context.Context, doc *domain.Document, resources []domain.Resource) (int, error)

	// ImportDocuments inserts every envelope document whose id is not yet
	// stored, together with its resources, in one transaction. Existing
	// documents and resources are skipped, never overwritten. On error
	// nothing is written.
	ImportDocuments(ctx context.Context, env domain.Envelope) (domain.ImportResult, error)

	// DeleteDocuments removes documents and every resource that references
	// them. Unknown ids are ignored. Returns the number of documents removed.
	DeleteDocuments(ctx context.Context, ids []string) (int, error)

	// GetResource retrieves a resource by ID.
	// Returns domain.ErrNotFound if absent.
	GetResource(ctx context.Context, id string) (*domain.Resource, error)

	// ListResources returns the resources that reference any of documentIDs.
	ListResources(ctx context.Context, documentIDs []string) ([]domain.Resource, error)

	// GetConfig returns the global config, or the default before the first write.
	GetConfig(ctx context.Context) (domain.GlobalConfig, error)

	// PutConfig replaces the global config.
	PutConfig(ctx context.Context, cfg domain.GlobalConfig) error

	// UpdateConfig reads the global config, applies fn and writes the result
	// as one operation. Nothing is written if fn returns an error.
	UpdateConfig(ctx context.Context, fn func(*domain.GlobalConfig) error) (domain.GlobalConfig, error)
}
