package driven

import "context"

// StoreWatcher reports that the persisted store may have changed.
type StoreWatcher interface {
	// Watch calls onChange after each burst of changes until ctx ends.
	Watch(ctx context.Context, onChange func()) error

	// Close releases watcher resources.
	Close() error
}
