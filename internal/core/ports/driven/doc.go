// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ObjectStore: Document, resource and global config persistence
//   - ConfigStore: Application settings
//   - Transport: Carries messages from a UI context to the background context
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PageCapturer: Captures the current page. Without it, SaveDocument fails.
//   - FilePicker: Picks and reads local import files.
//   - StoreWatcher: Reports store changes so views can refresh.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
