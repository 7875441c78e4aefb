// Package domain defines the core business entities for webstash.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A captured web page or article
//   - Resource: An image or other asset belonging to a Document
//   - GlobalConfig: The singleton user preference record
//   - DomainGroup: A derived, non-persisted grouping of Documents by host
//   - Selection: The set of selected Documents in a manager view
//   - Envelope: The JSON transfer unit for import and export
//   - Message: A request sent from a UI context to the background context
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
