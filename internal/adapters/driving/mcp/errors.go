// Package mcp provides an MCP (Model Context Protocol) server adapter for webstash.
// It lets AI assistants browse, save and export captured pages.
package mcp

import "errors"

// ErrMissingLibraryService is returned when the library service is not provided.
var ErrMissingLibraryService = errors.New("mcp: library service is required")
