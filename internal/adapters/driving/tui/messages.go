package tui

// loadedMsg reports the end of a refresh.
type loadedMsg struct {
	err error
}

// deletedMsg reports the end of a delete.
type deletedMsg struct {
	count int
	err   error
}

// exportedMsg reports the end of an export.
type exportedMsg struct {
	path  string
	count int
	err   error
}

// layoutMsg reports the end of a display type change.
type layoutMsg struct {
	err error
}

// storeChangedMsg is sent after the watcher refreshed the session.
type storeChangedMsg struct{}

// watchStoppedMsg is sent when the watcher gives up.
type watchStoppedMsg struct {
	err error
}
