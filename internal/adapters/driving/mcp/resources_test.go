package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/renderers"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "webstash://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "webstash://documents/doc-456/extra",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{documents: testDocuments()}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("webstash://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "doc-1")
		assert.Contains(t, result.Contents[0].Text, "https://b.com/2")
	})

	t.Run("empty library is an empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{documents: []domain.Document{}}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("webstash://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{err: errors.New("database error")}})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("webstash://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleConfigResource(t *testing.T) {
	ctx := context.Background()

	server, err := NewServer(&Ports{Library: &mockLibraryService{config: domain.DefaultGlobalConfig()}})
	require.NoError(t, err)

	result, err := server.handleConfigResource(ctx, makeReadResourceRequest("webstash://config"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, `"listDisplayType": "default"`)
	assert.Contains(t, result.Contents[0].Text, `"imageSaveType": "download"`)
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("webstash://invalid/uri"))
		require.Error(t, err)
	})

	t.Run("missing document returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{err: domain.ErrNotFound}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("webstash://documents/nope"))
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting document")
	})

	t.Run("returns html content", func(t *testing.T) {
		doc := testDocuments()[0]
		doc.Content = "<html><body>hello</body></html>"
		server, err := NewServer(&Ports{Library: &mockLibraryService{document: &doc}})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("webstash://documents/doc-1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "text/html", result.Contents[0].MIMEType)
		assert.Equal(t, doc.Content, result.Contents[0].Text)
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{err: domain.ErrStorageUnavailable}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("webstash://documents/doc-1"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}

func TestServer_handleDocumentMarkdownResource(t *testing.T) {
	ctx := context.Background()

	t.Run("renders markdown", func(t *testing.T) {
		doc := testDocuments()[0]
		doc.Content = `<h2>Intro</h2><p>Read <a href="/more">more</a></p>`
		server, err := NewServer(&Ports{
			Library:   &mockLibraryService{document: &doc},
			Renderers: renderers.Default(),
		})
		require.NoError(t, err)

		result, err := server.handleDocumentMarkdownResource(ctx, makeReadResourceRequest("webstash://markdown/doc-1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "text/markdown", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "## Intro")
		assert.Contains(t, result.Contents[0].Text, "[more](https://a.com/more)")
	})

	t.Run("missing document returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Library:   &mockLibraryService{err: domain.ErrNotFound},
			Renderers: renderers.Default(),
		})
		require.NoError(t, err)

		_, err = server.handleDocumentMarkdownResource(ctx, makeReadResourceRequest("webstash://markdown/nope"))
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting document")
	})

	t.Run("documents URI is not a markdown URI", func(t *testing.T) {
		server, err := NewServer(&Ports{Library: &mockLibraryService{}, Renderers: renderers.Default()})
		require.NoError(t, err)

		_, err = server.handleDocumentMarkdownResource(ctx, makeReadResourceRequest("webstash://documents/doc-1"))
		require.Error(t, err)
	})
}
