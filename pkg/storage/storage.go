// Package storage opens table files by URI: local paths, s3://bucket/key,
// gs://bucket/object and mem://name. The path "-" reads stdin or writes
// stdout.
//
// Backends are selected by URI scheme from a Store. Cloud clients are
// created on first use, so a Store that only touches local files never
// loads AWS or Google credentials.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/config"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/logger"
)

// Options configures the cloud backends.
type Options struct {
	S3Region           string
	S3Endpoint         string
	GCSCredentialsFile string
}

// OptionsFromConfig converts the storage section of the configuration.
func OptionsFromConfig(cfg config.StorageConfig) Options {
	return Options{
		S3Region:           cfg.S3Region,
		S3Endpoint:         cfg.S3Endpoint,
		GCSCredentialsFile: cfg.GCSCredentialsFile,
	}
}

// Location is a parsed URI.
type Location struct {
	// Scheme is "file", "s3", "gs" or any registered scheme.
	Scheme string
	// Bucket is the bucket or host part for remote schemes.
	Bucket string
	// Key is the object key for remote schemes and the path for files.
	Key string
	// URI is the original string.
	URI string
}

func (l Location) String() string { return l.URI }

// ParseURI splits uri into a Location. Strings without "scheme://" are
// local paths.
func ParseURI(uri string) (Location, error) {
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		if uri == "" {
			return Location{}, errors.New(errors.ErrorTypeValidation, "empty storage URI")
		}
		return Location{Scheme: "file", Key: uri, URI: uri}, nil
	}
	scheme = strings.ToLower(scheme)
	if scheme == "file" {
		return Location{Scheme: scheme, Key: rest, URI: uri}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Location{}, errors.Newf(errors.ErrorTypeValidation,
			"storage URI %q must name a bucket and a key", uri)
	}
	return Location{Scheme: scheme, Bucket: bucket, Key: key, URI: uri}, nil
}

// Backend reads and writes objects of one scheme.
type Backend interface {
	Open(ctx context.Context, loc Location) (io.ReadCloser, error)
	// Create returns a writer whose Close commits the object.
	Create(ctx context.Context, loc Location) (io.WriteCloser, error)
}

// Store dispatches URIs to backends.
type Store struct {
	mu       sync.RWMutex
	backends map[string]Backend
	logger   *zap.Logger
}

// New creates a store with the file, s3, gs and mem backends.
func New(opts Options) *Store {
	s := &Store{
		backends: make(map[string]Backend),
		logger:   logger.Get().With(zap.String("component", "storage")),
	}
	s.backends["file"] = fileBackend{}
	s.backends["s3"] = newS3Backend(opts)
	s.backends["gs"] = newGCSBackend(opts)
	s.backends["mem"] = NewMemoryBackend()
	return s
}

// Register installs b for scheme, replacing any existing backend.
func (s *Store) Register(scheme string, b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backends[strings.ToLower(scheme)] = b
}

// Backend returns the backend registered for scheme.
func (s *Store) Backend(scheme string) (Backend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.backends[scheme]
	return b, ok
}

func (s *Store) resolve(uri string) (Backend, Location, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, Location{}, err
	}
	b, ok := s.Backend(loc.Scheme)
	if !ok {
		return nil, Location{}, errors.Newf(errors.ErrorTypeValidation,
			"no storage backend for scheme %q", loc.Scheme).WithDetail("path", uri)
	}
	return b, loc, nil
}

// Open opens uri for reading.
func (s *Store) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	b, loc, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	r, err := b.Open(ctx, loc)
	if err != nil {
		return nil, errors.IoFailure(uri, err)
	}
	s.logger.Debug("opened for reading", zap.String("uri", uri))
	return r, nil
}

// Create opens uri for writing. The object is complete only after Close
// returns nil.
func (s *Store) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	b, loc, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	w, err := b.Create(ctx, loc)
	if err != nil {
		return nil, errors.IoFailure(uri, err)
	}
	s.logger.Debug("opened for writing", zap.String("uri", uri))
	return &ioFailureWriter{w: w, uri: uri}, nil
}

// ReadAll reads the whole object at uri.
func (s *Store) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	r, err := s.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.IoFailure(uri, err)
	}
	return data, nil
}

// WriteAll replaces the object at uri with data.
func (s *Store) WriteAll(ctx context.Context, uri string, data []byte) error {
	w, err := s.Create(ctx, uri)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ioFailureWriter reports write and commit failures as IoFailure.
type ioFailureWriter struct {
	w   io.WriteCloser
	uri string
}

func (f *ioFailureWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, errors.IoFailure(f.uri, err)
	}
	return n, nil
}

func (f *ioFailureWriter) Close() error {
	if err := f.w.Close(); err != nil {
		return errors.IoFailure(f.uri, err)
	}
	return nil
}

// multiCloser closes a reader or writer and then the client it came from.
type multiCloser struct {
	closers []func() error
}

func (m multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func errNotFound(loc Location) error {
	return fmt.Errorf("%s: %w", loc.URI, errObjectNotFound)
}

// AsIoFailure reports err as IoFailure(uri, err) unless it already is one.
func AsIoFailure(uri string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errors.ErrIO) {
		return err
	}
	return errors.IoFailure(uri, err)
}
