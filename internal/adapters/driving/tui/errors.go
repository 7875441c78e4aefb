package tui

import "errors"

// ErrMissingLibraryService is returned when the library service is not provided.
var ErrMissingLibraryService = errors.New("tui: library service is required")

// ErrMissingCommands is returned when the background messenger is not provided.
var ErrMissingCommands = errors.New("tui: library commands are required")
