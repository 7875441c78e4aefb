// Package sqlite provides the SQLite-based implementation of driven.ObjectStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. The documents, resources and config
// collections each map to one table in a single database file.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Durability
//
// Every write runs in its own transaction with synchronous=FULL, so a write is
// on disk before the call returns and is either fully applied or not at all.
// Deleting a document cascades to its resources through a foreign key.
//
// # Data Location
//
// By default, the database is stored at ~/.webstash/data/webstash.db
package sqlite
