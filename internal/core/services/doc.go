// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Mutations of the object store are executed only by Background, which
// runs every handler on a single dispatcher goroutine. Other contexts reach
// it through Messenger; reads go directly to the store.
//
// Services are pure Go with no CGO or external dependencies.
package services
