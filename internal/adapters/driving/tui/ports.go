// Package tui provides the interactive library manager for webstash.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
)

// Ports aggregates the services the manager needs.
type Ports struct {
	// Library reads documents and config.
	Library driving.LibraryService

	// Commands sends deletes and config changes to the background context.
	Commands driving.LibraryCommands

	// Transfer exports the selection. Without it export reports an error.
	Transfer driving.TransferService

	// Watcher, if set, refreshes the list when another process changes
	// the library.
	Watcher driven.StoreWatcher
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Library == nil {
		return ErrMissingLibraryService
	}
	if p.Commands == nil {
		return ErrMissingCommands
	}
	return nil
}
