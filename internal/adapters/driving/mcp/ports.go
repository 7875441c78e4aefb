package mcp

import (
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Library reads documents, groups and config.
	Library driving.LibraryService

	// Commands sends mutations to the background context.
	// Without it the save_page tool reports an error.
	Commands driving.LibraryCommands

	// Transfer exports documents as JSON envelopes.
	// Without it the export_documents tool reports an error.
	Transfer driving.TransferService

	// Renderers converts captured pages for the markdown resource.
	// Without it the resource is not registered.
	Renderers driven.RendererRegistry
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Library == nil {
		return ErrMissingLibraryService
	}
	return nil
}
