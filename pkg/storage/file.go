package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// fileBackend reads and writes the local filesystem.
type fileBackend struct{}

func (fileBackend) Open(_ context.Context, loc Location) (io.ReadCloser, error) {
	if loc.Key == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(loc.Key) //nolint:gosec // G304: path is supplied by the caller
}

func (fileBackend) Create(_ context.Context, loc Location) (io.WriteCloser, error) {
	if loc.Key == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(loc.Key); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(loc.Key) //nolint:gosec // G304: path is supplied by the caller
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
