package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

// ObjectStore is an in-memory implementation of driven.ObjectStore.
// It is used by tests and by the CLI when no data directory is available.
type ObjectStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	order     []string
	resources map[string]domain.Resource
	config    *domain.GlobalConfig

	quota int64
	used  int64
}

// Option configures an ObjectStore.
type Option func(*ObjectStore)

// WithQuota rejects writes with domain.ErrQuotaExceeded once the stored
// document content and resource data would exceed limit bytes.
func WithQuota(limit int64) Option {
	return func(s *ObjectStore) {
		s.quota = limit
	}
}

// NewObjectStore creates a new in-memory object store.
func NewObjectStore(opts ...Option) *ObjectStore {
	s := &ObjectStore{
		documents: make(map[string]domain.Document),
		resources: make(map[string]domain.Resource),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDocument retrieves a document by ID.
func (s *ObjectStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents, oldest capture first.
func (s *ObjectStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.documents[id])
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CapturedAt.Before(docs[j].CapturedAt)
	})
	return docs, nil
}

// InsertDocument stores a new document together with its resources.
func (s *ObjectStore) InsertDocument(
	_ context.Context,
	doc *domain.Document,
	resources []domain.Resource,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; ok {
		return 0, fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
	}

	fresh := s.freshResources(resources)
	if err := s.reserve(footprint(doc, fresh)); err != nil {
		return 0, err
	}

	s.putDocument(*doc)
	for i := range fresh {
		s.resources[fresh[i].ID] = fresh[i]
	}
	return len(fresh), nil
}

// ImportDocuments inserts the envelope's new documents and their resources.
func (s *ObjectStore) ImportDocuments(_ context.Context, env domain.Envelope) (domain.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result domain.ImportResult
	var docs []domain.Document
	inserted := make(map[string]bool)

	for i := range env.ExportDocuments {
		doc := env.ExportDocuments[i]
		if _, ok := s.documents[doc.ID]; ok || inserted[doc.ID] {
			result.Skipped++
			continue
		}
		inserted[doc.ID] = true
		docs = append(docs, doc)
	}

	var resources []domain.Resource
	seen := make(map[string]bool)
	for _, res := range env.ExportResources {
		if !inserted[res.DocumentID] {
			result.ResourcesSkipped++
			continue
		}
		if _, ok := s.resources[res.ID]; ok || seen[res.ID] {
			result.ResourcesSkipped++
			continue
		}
		seen[res.ID] = true
		resources = append(resources, res)
	}

	var size int64
	for i := range docs {
		size += int64(len(docs[i].Content))
	}
	for i := range resources {
		size += int64(len(resources[i].BinaryData))
	}
	if err := s.reserve(size); err != nil {
		return domain.ImportResult{}, err
	}

	for i := range docs {
		s.putDocument(docs[i])
	}
	for i := range resources {
		s.resources[resources[i].ID] = resources[i]
	}
	result.Inserted = len(docs)
	result.ResourcesInserted = len(resources)
	return result, nil
}

// DeleteDocuments removes documents and every resource that references them.
func (s *ObjectStore) DeleteDocuments(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		doc, ok := s.documents[id]
		if !ok || remove[id] {
			continue
		}
		remove[id] = true
		s.used -= int64(len(doc.Content))
		delete(s.documents, id)
	}
	if len(remove) == 0 {
		return 0, nil
	}

	for id, res := range s.resources {
		if remove[res.DocumentID] {
			s.used -= int64(len(res.BinaryData))
			delete(s.resources, id)
		}
	}

	order := s.order[:0]
	for _, id := range s.order {
		if !remove[id] {
			order = append(order, id)
		}
	}
	s.order = order
	return len(remove), nil
}

// GetResource retrieves a resource by ID.
func (s *ObjectStore) GetResource(_ context.Context, id string) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

// ListResources returns the resources that reference any of documentIDs,
// ordered by document then resource id.
func (s *ObjectStore) ListResources(_ context.Context, documentIDs []string) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		want[id] = true
	}

	out := make([]domain.Resource, 0)
	for _, res := range s.resources {
		if want[res.DocumentID] {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetConfig returns the global config, or the default before the first write.
func (s *ObjectStore) GetConfig(_ context.Context) (domain.GlobalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return domain.DefaultGlobalConfig(), nil
	}
	return *s.config, nil
}

// PutConfig replaces the global config.
func (s *ObjectStore) PutConfig(_ context.Context, cfg domain.GlobalConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
	return nil
}

// UpdateConfig applies fn to the stored config under the write lock.
func (s *ObjectStore) UpdateConfig(
	_ context.Context,
	fn func(*domain.GlobalConfig) error,
) (domain.GlobalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := domain.DefaultGlobalConfig()
	if s.config != nil {
		cfg = *s.config
	}
	if err := fn(&cfg); err != nil {
		return domain.GlobalConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return domain.GlobalConfig{}, err
	}
	s.config = &cfg
	return cfg, nil
}

// putDocument must be called with mu held.
func (s *ObjectStore) putDocument(doc domain.Document) {
	s.documents[doc.ID] = doc
	s.order = append(s.order, doc.ID)
}

// freshResources drops resources whose id is already stored or repeated.
// Must be called with mu held.
func (s *ObjectStore) freshResources(resources []domain.Resource) []domain.Resource {
	fresh := make([]domain.Resource, 0, len(resources))
	seen := make(map[string]bool, len(resources))
	for _, res := range resources {
		if _, ok := s.resources[res.ID]; ok || seen[res.ID] {
			continue
		}
		seen[res.ID] = true
		fresh = append(fresh, res)
	}
	return fresh
}

// reserve accounts for n more bytes. Must be called with mu held.
func (s *ObjectStore) reserve(n int64) error {
	if s.quota > 0 && s.used+n > s.quota {
		return fmt.Errorf("%w: %d of %d bytes used, %d more requested",
			domain.ErrQuotaExceeded, s.used, s.quota, n)
	}
	s.used += n
	return nil
}

func footprint(doc *domain.Document, resources []domain.Resource) int64 {
	n := int64(len(doc.Content))
	for i := range resources {
		n += int64(len(resources[i].BinaryData))
	}
	return n
}
