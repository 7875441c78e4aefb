package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
	"github.com/custodia-labs/webstash/internal/logger"
)

// ManagerView is a presentation-ready snapshot of the manager page.
type ManagerView struct {
	DisplayType domain.ListDisplayType
	Documents   []domain.Document
	Groups      []domain.DomainGroup
	Selected    []string
	Flags       domain.SelectionFlags
}

// ManagerSession holds the state of one manager view: a snapshot of the
// library, the selection over it, and a loading flag. Reads go straight to
// the store; mutations are requested through commands.
type ManagerSession struct {
	library  driving.LibraryService
	commands driving.LibraryCommands
	transfer driving.TransferService
	log      logger.Logger

	loading atomic.Bool

	mu        sync.Mutex
	docs      []domain.Document
	cfg       domain.GlobalConfig
	selection *domain.Selection
}

// NewManagerSession creates an empty session. Call Refresh to load it.
func NewManagerSession(
	library driving.LibraryService,
	commands driving.LibraryCommands,
	transfer driving.TransferService,
) *ManagerSession {
	return &ManagerSession{
		library:   library,
		commands:  commands,
		transfer:  transfer,
		log:       logger.With("manager"),
		cfg:       domain.DefaultGlobalConfig(),
		selection: domain.NewSelection(),
	}
}

// Loading reports whether a refresh or bulk operation is in flight.
func (m *ManagerSession) Loading() bool {
	return m.loading.Load()
}

// Refresh reloads documents and config and re-intersects the selection with
// the new document set. The previous snapshot is kept on failure.
func (m *ManagerSession) Refresh(ctx context.Context) error {
	m.loading.Store(true)
	defer m.loading.Store(false)

	return m.refresh(ctx)
}

func (m *ManagerSession) refresh(ctx context.Context) error {
	docs, err := m.library.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	cfg, err := m.library.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = docs
	m.cfg = cfg
	m.selection.SetVisible(ids)
	return nil
}

// View returns the current snapshot laid out per the configured display type.
// Groups are recomputed on every call.
func (m *ManagerSession) View() ManagerView {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := ManagerView{
		DisplayType: m.cfg.ListDisplayType,
		Documents:   append([]domain.Document(nil), m.docs...),
		Selected:    m.selection.Selected(),
		Flags:       m.selection.Flags(),
	}
	if view.DisplayType == domain.ListDisplayDomain {
		view.Groups = domain.GroupByDomain(m.docs)
	}
	return view
}

// SelectAll selects every visible document.
func (m *ManagerSession) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.SelectAll(m.visibleIDs())
}

// Clear deselects everything.
func (m *ManagerSession) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Clear()
}

// SetSelection selects ids, dropping any that are not visible.
func (m *ManagerSession) SetSelection(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.SetSelection(ids)
}

// Selected returns the selected ids in display order.
func (m *ManagerSession) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.Selected()
}

// Flags returns the select-all flags.
func (m *ManagerSession) Flags() domain.SelectionFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.Flags()
}

// DeleteSelected asks the background context to delete the selection, then
// refreshes the snapshot.
func (m *ManagerSession) DeleteSelected(ctx context.Context) (int, error) {
	ids := m.Selected()
	if len(ids) == 0 {
		return 0, nil
	}

	m.loading.Store(true)
	defer m.loading.Store(false)

	n, err := m.commands.DeleteDocuments(ctx, ids)
	if err != nil {
		return 0, err
	}
	if err := m.refresh(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// ExportSelected serialises the selection and its resources.
func (m *ManagerSession) ExportSelected(ctx context.Context) ([]byte, error) {
	ids := m.Selected()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: nothing selected", domain.ErrInvalidInput)
	}

	env, err := m.transfer.ExportSubset(ctx, ids)
	if err != nil {
		return nil, err
	}
	return m.transfer.Serialize(env)
}

// Watch refreshes the session whenever watcher reports a store change, until
// ctx ends. onRefresh, if set, is called after each refresh attempt.
func (m *ManagerSession) Watch(ctx context.Context, watcher driven.StoreWatcher, onRefresh func(error)) error {
	err := watcher.Watch(ctx, func() {
		err := m.Refresh(ctx)
		if err != nil {
			m.log.Warn("refresh after store change: %v", err)
		}
		if onRefresh != nil {
			onRefresh(err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// visibleIDs must be called with mu held.
func (m *ManagerSession) visibleIDs() []string {
	ids := make([]string, len(m.docs))
	for i := range m.docs {
		ids[i] = m.docs[i].ID
	}
	return ids
}
