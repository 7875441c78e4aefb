package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
	"github.com/custodia-labs/webstash/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// documentNamespace scopes the UUIDv5 ids derived for captured documents.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://webstash.dev/documents"))

// LibraryService reads the document library and implements the mutations
// executed by the background context.
type LibraryService struct {
	store    driven.ObjectStore
	capturer driven.PageCapturer
	now      func() time.Time
	log      logger.Logger
}

// NewLibraryService creates a library service. capturer may be nil, in
// which case SaveDocument fails.
func NewLibraryService(store driven.ObjectStore, capturer driven.PageCapturer) *LibraryService {
	return &LibraryService{
		store:    store,
		capturer: capturer,
		now:      time.Now,
		log:      logger.With("library"),
	}
}

// ListDocuments returns all documents, oldest capture first.
func (s *LibraryService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// GetDocument retrieves a document by ID.
func (s *LibraryService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ListGroups returns documents grouped by domain, recomputed on every call.
func (s *LibraryService) ListGroups(ctx context.Context) ([]domain.DomainGroup, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupByDomain(docs), nil
}

// GetConfig returns the global config.
func (s *LibraryService) GetConfig(ctx context.Context) (domain.GlobalConfig, error) {
	return s.store.GetConfig(ctx)
}

// RegisterHandlers installs the library mutations on bg.
func (s *LibraryService) RegisterHandlers(bg *Background) {
	// Capturing fetches over the network, so it runs off the dispatcher;
	// only the insert is serialised with other writes.
	bg.RegisterStaged(domain.ActionSaveDocument,
		func(ctx context.Context, msg domain.Message) (any, error) {
			var payload domain.SavePayload
			if err := decodePayload(msg, &payload); err != nil {
				return nil, err
			}
			return s.CapturePage(ctx, payload)
		},
		func(ctx context.Context, msg domain.Message, prepared any) (any, error) {
			capture, ok := prepared.(*PageCapture)
			if !ok {
				return nil, fmt.Errorf("unexpected prepared value %T", prepared)
			}
			return s.StoreCapture(ctx, msg.RequestID, capture)
		},
	)

	bg.Register(domain.ActionDeleteDocuments, func(ctx context.Context, msg domain.Message) (any, error) {
		var payload domain.DeletePayload
		if err := decodePayload(msg, &payload); err != nil {
			return nil, err
		}
		n, err := s.DeleteDocuments(ctx, payload.IDs)
		if err != nil {
			return nil, err
		}
		return domain.DeleteResult{Deleted: n}, nil
	})

	bg.Register(domain.ActionUpdateConfig, func(ctx context.Context, msg domain.Message) (any, error) {
		var patch domain.ConfigPatch
		if err := decodePayload(msg, &patch); err != nil {
			return nil, err
		}
		return s.UpdateConfig(ctx, patch)
	})

	bg.Register(domain.ActionApplyImport, func(ctx context.Context, msg domain.Message) (any, error) {
		var env domain.Envelope
		if err := decodePayload(msg, &env); err != nil {
			return nil, err
		}
		return s.ApplyImport(ctx, env)
	})
}

// PageCapture is a captured page waiting to be stored.
type PageCapture struct {
	Payload domain.SavePayload
	Page    *domain.CapturedPage
	Config  domain.GlobalConfig
}

// SaveDocument captures the page described by payload and stores it with its
// images. The document id is derived from the page URL, the captured markup
// and requestID, so replaying the same request finds the stored document
// instead of inserting a second one.
func (s *LibraryService) SaveDocument(
	ctx context.Context,
	requestID string,
	payload domain.SavePayload,
) (*domain.Document, error) {
	capture, err := s.CapturePage(ctx, payload)
	if err != nil {
		return nil, err
	}
	return s.StoreCapture(ctx, requestID, capture)
}

// CapturePage fetches the page described by payload. It reads the config
// but writes nothing, so it may run concurrently with store writes.
func (s *LibraryService) CapturePage(ctx context.Context, payload domain.SavePayload) (*PageCapture, error) {
	if !payload.HandleType.IsValid() {
		return nil, fmt.Errorf("%w: handle type %q", domain.ErrInvalidInput, payload.HandleType)
	}
	if s.capturer == nil {
		return nil, errors.New("page capturer not configured")
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	page, err := s.capturer.Capture(ctx, driven.CaptureOptions{
		HandleType:     payload.HandleType,
		URL:            payload.URL,
		DownloadImages: cfg.ImageSaveType == domain.ImageSaveDownload,
		MaxImageBytes:  cfg.MaxImageBytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("capturing page: %w", err)
	}

	return &PageCapture{Payload: payload, Page: page, Config: cfg}, nil
}

// StoreCapture inserts a captured page and its images.
func (s *LibraryService) StoreCapture(
	ctx context.Context,
	requestID string,
	capture *PageCapture,
) (*domain.Document, error) {
	page := capture.Page

	host, err := domain.DomainOf(page.URL)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         DeriveDocumentID(page.URL, page.HTML, requestID),
		Title:      page.Title,
		Href:       page.URL,
		Domain:     host,
		CapturedAt: s.now().UTC(),
		HandleType: capture.Payload.HandleType,
		Content:    page.HTML,
	}
	if doc.Title == "" {
		doc.Title = page.URL
	}

	resources := s.buildResources(doc.ID, page.Images, capture.Config)

	size := len(page.HTML)
	for i := range resources {
		size += len(resources[i].BinaryData)
	}
	doc.ContentSize = domain.SizeInMB(size)

	if _, err := s.store.InsertDocument(ctx, doc, resources); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.log.Debug("document %s already stored for request %s", doc.ID, requestID)
			return s.store.GetDocument(ctx, doc.ID)
		}
		return nil, fmt.Errorf("storing document: %w", err)
	}

	s.log.Info("saved %s (%s, %.2f MB, %d resources)", doc.Href, doc.HandleType, doc.ContentSize, len(resources))
	return doc, nil
}

// buildResources turns captured images into resources according to cfg.
// In download mode images without data (too large or failed) are dropped.
func (s *LibraryService) buildResources(
	documentID string,
	images []domain.CapturedImage,
	cfg domain.GlobalConfig,
) []domain.Resource {
	namespace := uuid.NewSHA1(documentNamespace, []byte(documentID))
	seen := make(map[string]bool, len(images))
	resources := make([]domain.Resource, 0, len(images))

	for _, img := range images {
		if img.URL == "" || seen[img.URL] {
			continue
		}
		seen[img.URL] = true

		res := domain.Resource{
			ID:          uuid.NewSHA1(namespace, []byte(img.URL)).String(),
			DocumentID:  documentID,
			OriginalURL: img.URL,
			ContentType: img.ContentType,
		}

		switch cfg.ImageSaveType {
		case domain.ImageSaveDownload:
			if len(img.Data) == 0 || int64(len(img.Data)) > cfg.MaxImageBytes() {
				s.log.Debug("skipping image %s (%d bytes)", img.URL, len(img.Data))
				continue
			}
			res.Kind = domain.ResourceKindDownload
			res.BinaryData = img.Data
		default:
			res.Kind = domain.ResourceKindURL
		}

		resources = append(resources, res)
	}

	return resources
}

// DeriveDocumentID returns the UUIDv5 id for a capture of pageURL with the
// given markup, saved by the request marker.
func DeriveDocumentID(pageURL, html, marker string) string {
	sum := sha256.Sum256([]byte(html))
	name := pageURL + "\n" + hex.EncodeToString(sum[:]) + "\n" + marker
	return uuid.NewSHA1(documentNamespace, []byte(name)).String()
}

// DeleteDocuments removes documents and their resources.
func (s *LibraryService) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no document ids", domain.ErrInvalidInput)
	}
	n, err := s.store.DeleteDocuments(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting documents: %w", err)
	}
	s.log.Info("deleted %d of %d documents", n, len(ids))
	return n, nil
}

// UpdateConfig merges patch into the stored config in one store operation.
func (s *LibraryService) UpdateConfig(ctx context.Context, patch domain.ConfigPatch) (domain.GlobalConfig, error) {
	if patch.IsEmpty() {
		return s.store.GetConfig(ctx)
	}
	cfg, err := s.store.UpdateConfig(ctx, patch.Apply)
	if err != nil {
		return domain.GlobalConfig{}, fmt.Errorf("updating config: %w", err)
	}
	return cfg, nil
}

// ApplyImport merges env into the store. Documents whose id already exists
// are skipped and counted, never overwritten. The envelope is re-validated
// because it may arrive from any context; an invalid record fails the whole
// request before anything is written.
func (s *LibraryService) ApplyImport(ctx context.Context, env domain.Envelope) (domain.ImportResult, error) {
	for i := range env.ExportDocuments {
		if err := env.ExportDocuments[i].Validate(); err != nil {
			return domain.ImportResult{}, fmt.Errorf("document %d: %w", i, err)
		}
	}
	for i := range env.ExportResources {
		if err := env.ExportResources[i].Validate(); err != nil {
			return domain.ImportResult{}, fmt.Errorf("resource %d: %w", i, err)
		}
	}

	result, err := s.store.ImportDocuments(ctx, env)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("importing documents: %w", err)
	}

	s.log.Info("import: %d inserted, %d skipped", result.Inserted, result.Skipped)
	return result, nil
}
