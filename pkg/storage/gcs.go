package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsBackend serves gs://bucket/object URIs. Each reader or writer owns a
// client that is closed with it.
type gcsBackend struct {
	opts Options
}

func newGCSBackend(opts Options) *gcsBackend {
	return &gcsBackend{opts: opts}
}

func (b *gcsBackend) client(ctx context.Context) (*gcs.Client, error) {
	var opts []option.ClientOption

	// Add credentials if provided
	if b.opts.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(b.opts.GCSCredentialsFile))
	}

	return gcs.NewClient(ctx, opts...)
}

func (b *gcsBackend) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	client, err := b.client(ctx)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{r, multiCloser{closers: []func() error{r.Close, client.Close}}}, nil
}

func (b *gcsBackend) Create(ctx context.Context, loc Location) (io.WriteCloser, error) {
	client, err := b.client(ctx)
	if err != nil {
		return nil, err
	}
	w := client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	return struct {
		io.Writer
		io.Closer
	}{w, multiCloser{closers: []func() error{w.Close, client.Close}}}, nil
}
