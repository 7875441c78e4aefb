// Package driving defines interfaces that external actors (CLI, MCP, HTTP)
// use to interact with core services. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
// Read operations (LibraryService, TransferService) may be called from any
// context. Mutations go through LibraryCommands, which forwards them to the
// single background context that owns writes.
//
// Implementations of these interfaces live in internal/core/services.
package driving
