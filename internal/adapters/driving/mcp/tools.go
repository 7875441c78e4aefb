package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/webstash/internal/core/domain"
)

// DocumentOutput is the tool view of a captured document.
type DocumentOutput struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Href        string  `json:"href"`
	Domain      string  `json:"domain"`
	ContentSize float64 `json:"content_size_mb"`
	CapturedAt  string  `json:"captured_at,omitempty"`
	HandleType  string  `json:"handle_type,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Domain string `json:"domain,omitempty" jsonschema:"only return documents captured from this host"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default all)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// ListDomainsInput is the input schema for the list_domains tool.
type ListDomainsInput struct{}

// DomainOutput summarises one domain group.
type DomainOutput struct {
	Domain    string  `json:"domain"`
	SizeMB    float64 `json:"size_mb"`
	Documents int     `json:"documents"`
}

// ListDomainsOutput is the output schema for the list_domains tool.
type ListDomainsOutput struct {
	Domains []DomainOutput `json:"domains"`
}

// SavePageInput is the input schema for the save_page tool.
type SavePageInput struct {
	URL     string `json:"url" jsonschema:"the page to capture"`
	Article bool   `json:"article,omitempty" jsonschema:"keep only the main article instead of the whole page"`
}

// SavePageOutput is the output schema for the save_page tool.
type SavePageOutput struct {
	Document DocumentOutput `json:"document"`
}

// ExportDocumentsInput is the input schema for the export_documents tool.
type ExportDocumentsInput struct {
	IDs []string `json:"ids" jsonschema:"ids of the documents to export"`
}

// ExportDocumentsOutput is the output schema for the export_documents tool.
type ExportDocumentsOutput struct {
	Envelope  string `json:"envelope"`
	Documents int    `json:"documents"`
	Resources int    `json:"resources"`
}

var (
	errNoCommands = errors.New("saving is not available in this session")
	errNoTransfer = errors.New("exporting is not available in this session")
)

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List captured web pages, oldest first",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_domains",
		Description: "List captured pages grouped by host with total size",
	}, s.handleListDomains)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_page",
		Description: "Capture a web page and store it in the library",
	}, s.handleSavePage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export_documents",
		Description: "Export documents and their images as a JSON envelope",
	}, s.handleExportDocuments)
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Library.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{Documents: make([]DocumentOutput, 0, len(docs))}
	for i := range docs {
		if input.Domain != "" && docs[i].Domain != input.Domain {
			continue
		}
		output.Documents = append(output.Documents, toDocumentOutput(&docs[i]))
		if input.Limit > 0 && len(output.Documents) == input.Limit {
			break
		}
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

func (s *Server) handleListDomains(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDomainsInput,
) (*mcp.CallToolResult, ListDomainsOutput, error) {
	groups, err := s.ports.Library.ListGroups(ctx)
	if err != nil {
		return nil, ListDomainsOutput{}, err
	}

	output := ListDomainsOutput{Domains: make([]DomainOutput, len(groups))}
	for i := range groups {
		output.Domains[i] = DomainOutput{
			Domain:    groups[i].Domain,
			SizeMB:    groups[i].StyleSize,
			Documents: len(groups[i].Children),
		}
	}
	return nil, output, nil
}

func (s *Server) handleSavePage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SavePageInput,
) (*mcp.CallToolResult, SavePageOutput, error) {
	if s.ports.Commands == nil {
		return nil, SavePageOutput{}, errNoCommands
	}

	handle := domain.HandleTypePage
	if input.Article {
		handle = domain.HandleTypeArticle
	}

	doc, err := s.ports.Commands.SaveDocument(ctx, domain.SavePayload{HandleType: handle, URL: input.URL})
	if err != nil {
		return nil, SavePageOutput{}, err
	}
	return nil, SavePageOutput{Document: toDocumentOutput(doc)}, nil
}

func (s *Server) handleExportDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportDocumentsInput,
) (*mcp.CallToolResult, ExportDocumentsOutput, error) {
	if s.ports.Transfer == nil {
		return nil, ExportDocumentsOutput{}, errNoTransfer
	}

	env, err := s.ports.Transfer.ExportSubset(ctx, input.IDs)
	if err != nil {
		return nil, ExportDocumentsOutput{}, err
	}
	data, err := s.ports.Transfer.Serialize(env)
	if err != nil {
		return nil, ExportDocumentsOutput{}, err
	}

	return nil, ExportDocumentsOutput{
		Envelope:  string(data),
		Documents: len(env.ExportDocuments),
		Resources: len(env.ExportResources),
	}, nil
}

func toDocumentOutput(doc *domain.Document) DocumentOutput {
	out := DocumentOutput{
		ID:          doc.ID,
		Title:       doc.Title,
		Href:        doc.Href,
		Domain:      doc.Domain,
		ContentSize: doc.ContentSize,
		HandleType:  string(doc.HandleType),
	}
	if !doc.CapturedAt.IsZero() {
		out.CapturedAt = doc.CapturedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}
