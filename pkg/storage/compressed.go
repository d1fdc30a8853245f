package storage

import (
	"context"
	"io"
	"sync"

	"github.com/ajitpratap0/tabula/pkg/compression"
	"github.com/ajitpratap0/tabula/pkg/errors"
)

var (
	defaultStore     *Store
	defaultStoreOnce sync.Once
)

// Default returns a process-wide store with default options.
func Default() *Store {
	defaultStoreOnce.Do(func() {
		defaultStore = New(Options{})
	})
	return defaultStore
}

// OpenDecompressed opens uri and decompresses it with algo. Auto picks the
// algorithm from the extension of uri.
func (s *Store) OpenDecompressed(ctx context.Context, uri string, algo compression.Algorithm) (io.ReadCloser, error) {
	r, err := s.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	dr, err := compression.NewReader(r, compression.Resolve(algo, uri))
	if err != nil {
		_ = r.Close()
		return nil, errors.IoFailure(uri, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{dr, multiCloser{closers: []func() error{dr.Close, r.Close}}}, nil
}

// CreateCompressed opens uri for writing through a compressor. Auto picks
// the algorithm from the extension of uri. An unknown algorithm fails
// before uri is touched. Closing the writer flushes the compressor and
// commits the object.
func (s *Store) CreateCompressed(ctx context.Context, uri string, algo compression.Algorithm, level compression.Level) (io.WriteCloser, error) {
	algo = compression.Resolve(algo, uri)
	if _, err := compression.ParseAlgorithm(string(algo)); err != nil {
		return nil, errors.IoFailure(uri, err)
	}
	w, err := s.Create(ctx, uri)
	if err != nil {
		return nil, err
	}
	cw, err := compression.NewWriter(w, algo, level)
	if err != nil {
		_ = w.Close()
		return nil, errors.IoFailure(uri, err)
	}
	return struct {
		io.Writer
		io.Closer
	}{cw, multiCloser{closers: []func() error{cw.Close, w.Close}}}, nil
}
