package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/tabula/pkg/errors"
)

const (
	defaultUploadPartSize = 5 * 1024 * 1024 // 5MB
	defaultMaxConcurrency = 4
)

// s3Backend serves s3://bucket/key URIs. The client is created on first use.
type s3Backend struct {
	opts Options

	once     sync.Once
	client   *s3.Client
	uploader *manager.Uploader
	err      error
}

func newS3Backend(opts Options) *s3Backend {
	return &s3Backend{opts: opts}
}

func (b *s3Backend) init(ctx context.Context) error {
	b.once.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(b.opts.S3Region),
		)
		if err != nil {
			b.err = errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
			return
		}

		b.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if b.opts.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(b.opts.S3Endpoint)
				o.UsePathStyle = true
			}
		})
		b.uploader = manager.NewUploader(b.client, func(u *manager.Uploader) {
			u.PartSize = defaultUploadPartSize
			u.Concurrency = defaultMaxConcurrency
		})
	})
	return b.err
}

func (b *s3Backend) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if err := b.init(ctx); err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (b *s3Backend) Create(ctx context.Context, loc Location) (io.WriteCloser, error) {
	if err := b.init(ctx); err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, backend: b, loc: loc}, nil
}

// s3Writer buffers the object and uploads it on Close.
type s3Writer struct {
	ctx     context.Context
	backend *s3Backend
	loc     Location
	buf     bytes.Buffer
	closed  bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := w.backend.uploader.Upload(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.loc.Bucket),
		Key:    aws.String(w.loc.Key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return err
}
