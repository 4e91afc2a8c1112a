package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Local serves files from the local filesystem. Relative paths resolve
// against Root, or the working directory when Root is empty.
type Local struct {
	Root string
}

func (l Local) resolve(path string) string {
	p := filepath.FromSlash(path)
	if l.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.Root, p)
}

// Open implements Files.
func (l Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(path))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create implements Files, creating parent directories as needed.
func (l Local) Create(_ context.Context, path string) (io.WriteCloser, error) {
	full := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, err
	}
	return f, nil
}

var _ Files = Local{}
