package mcp

import (
	"context"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
)

// mockLibraryService is a mock implementation of driving.LibraryService.
type mockLibraryService struct {
	documents []domain.Document
	document  *domain.Document
	groups    []domain.DomainGroup
	config    domain.GlobalConfig
	err       error
}

func (m *mockLibraryService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockLibraryService) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockLibraryService) ListGroups(_ context.Context) ([]domain.DomainGroup, error) {
	return m.groups, m.err
}

func (m *mockLibraryService) GetConfig(_ context.Context) (domain.GlobalConfig, error) {
	return m.config, m.err
}

// mockCommands is a mock implementation of driving.LibraryCommands.
type mockCommands struct {
	saved   domain.SavePayload
	doc     *domain.Document
	deleted int
	err     error
}

func (m *mockCommands) SaveDocument(_ context.Context, payload domain.SavePayload) (*domain.Document, error) {
	m.saved = payload
	return m.doc, m.err
}

func (m *mockCommands) DeleteDocuments(_ context.Context, _ []string) (int, error) {
	return m.deleted, m.err
}

func (m *mockCommands) UpdateConfig(_ context.Context, _ domain.ConfigPatch) (domain.GlobalConfig, error) {
	return domain.DefaultGlobalConfig(), m.err
}

func (m *mockCommands) ApplyImport(_ context.Context, _ domain.Envelope) (domain.ImportResult, error) {
	return domain.ImportResult{}, m.err
}

// mockTransferService is a mock implementation of driving.TransferService.
type mockTransferService struct {
	envelope *domain.Envelope
	data     []byte
	ids      []string
	err      error
}

func (m *mockTransferService) ExportSubset(_ context.Context, ids []string) (*domain.Envelope, error) {
	m.ids = ids
	return m.envelope, m.err
}

func (m *mockTransferService) Serialize(_ *domain.Envelope) ([]byte, error) {
	return m.data, m.err
}

func (m *mockTransferService) ParseEnvelope(_ string) (*domain.ParsedEnvelope, error) {
	return nil, m.err
}

func (m *mockTransferService) ImportFile(_ context.Context) (*driving.ImportReport, error) {
	return nil, m.err
}
