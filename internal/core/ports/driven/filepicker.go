package driven

import "context"

// FileHandle identifies a file chosen through a FilePicker.
type FileHandle struct {
	Name string
	Path string
	Size int64
}

// FilePicker chooses local files and reads them.
type FilePicker interface {
	// Pick returns a file matching accept (e.g. ".json").
	// Returns domain.ErrCancelled if nothing was chosen.
	Pick(ctx context.Context, accept string) (*FileHandle, error)

	// ReadText returns the file content as UTF-8 text.
	ReadText(ctx context.Context, handle *FileHandle) (string, error)
}
