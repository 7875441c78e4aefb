package file

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
)

// Ensure Picker implements the interface.
var _ driven.FilePicker = (*Picker)(nil)

// utf8BOM is dropped from the start of text files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Picker chooses import files. A preset path is used when one is set;
// otherwise the user is prompted on the terminal.
type Picker struct {
	mu     sync.Mutex
	preset string
	in     *bufio.Reader
	out    io.Writer
}

// NewPicker creates a picker that prompts on out and reads the answer from in.
// in may be nil, in which case only preset paths can be picked.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	p := &Picker{out: out}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	if p.out == nil {
		p.out = io.Discard
	}
	return p
}

// Preset makes the next Pick return path without prompting.
func (p *Picker) Preset(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preset = path
}

// Pick returns the chosen file. An empty answer returns domain.ErrCancelled.
func (p *Picker) Pick(ctx context.Context, accept string) (*driven.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := p.choose(accept)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, domain.ErrCancelled
	}

	if accept != "" && !strings.EqualFold(filepath.Ext(path), accept) {
		return nil, fmt.Errorf("%w: %s is not a %s file", domain.ErrInvalidInput, filepath.Base(path), accept)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	return &driven.FileHandle{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
	}, nil
}

// ReadText returns the file content. Content that is not UTF-8 fails with
// domain.ErrMalformed.
func (p *Picker) ReadText(ctx context.Context, handle *driven.FileHandle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(handle.Path)
	if err != nil {
		return "", err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", domain.ErrMalformed, handle.Name)
	}
	return string(data), nil
}

// choose consumes the preset path or prompts for one.
func (p *Picker) choose(accept string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.preset != "" {
		path := p.preset
		p.preset = ""
		return path, nil
	}
	if p.in == nil {
		return "", nil
	}

	if accept != "" {
		fmt.Fprintf(p.out, "Import file (%s): ", accept)
	} else {
		fmt.Fprint(p.out, "Import file: ")
	}

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading path: %w", err)
	}
	return strings.TrimSpace(line), nil
}
