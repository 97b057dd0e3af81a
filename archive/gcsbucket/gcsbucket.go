// Package gcsbucket implements archive.Client over a Google Cloud Storage
// bucket holding pre-staged yearly files, one object per request.
//
// Object keys mirror the request fields:
//
//	<prefix>/<class>/<dataset>/<stream>/<type>/<levtype>[<levelist>]/<param>/<step>/<year>.<grb|nc>
//
// Objects are global fields; area subsets cannot be served and are rejected.
package gcsbucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/log"
)

// Config configures the bucket client.
type Config struct {
	Bucket string
	// Prefix is prepended to every object key.
	Prefix string
	// Anonymous disables authentication, for public buckets.
	Anonymous bool
	// Endpoint overrides the storage endpoint (emulators).
	Endpoint string
	Logger   *log.Logger
}

// ErrAreaUnsupported is returned for requests with an area subset.
var ErrAreaUnsupported = errors.New("gcsbucket: objects are global; area subsets are not supported")

// ObjectNotFoundError reports a missing object.
type ObjectNotFoundError struct {
	Bucket, Key string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("gcsbucket: object gs://%s/%s does not exist", e.Bucket, e.Key)
}

// objectSource opens objects for reading.
type objectSource interface {
	NewReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Close() error
}

// Client copies objects into request targets.
type Client struct {
	cfg    Config
	source objectSource
}

var _ archive.Client = (*Client)(nil)

// New connects to Cloud Storage.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcsbucket: bucket is required")
	}
	var opts []option.ClientOption
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcsbucket: init client: %w", err)
	}
	return newWithSource(cfg, &gcsSource{client: sc}), nil
}

func newWithSource(cfg Config, src objectSource) *Client {
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Client{cfg: cfg, source: src}
}

// ObjectKey returns the object key for req.
func (c *Client) ObjectKey(req *archive.Request) string {
	return ObjectKey(c.cfg.Prefix, req)
}

// ObjectKey derives the object key for req under prefix.
func ObjectKey(prefix string, req *archive.Request) string {
	ext := ".grb"
	if req.Format == archive.FormatNetCDF {
		ext = ".nc"
	}
	return path.Join(prefix, req.Class, req.Dataset, req.Stream, req.Type,
		req.LevType+req.Levelist, req.Param, req.Step, req.Year()+ext)
}

// Retrieve copies the object for req into req.Target.
func (c *Client) Retrieve(ctx context.Context, req *archive.Request) (err error) {
	if req.Area != "" {
		return ErrAreaUnsupported
	}
	key := c.ObjectKey(req)

	r, err := c.source.NewReader(ctx, c.cfg.Bucket, key)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return &ObjectNotFoundError{Bucket: c.cfg.Bucket, Key: key}
	}
	if err != nil {
		return fmt.Errorf("gcsbucket: open gs://%s/%s: %w", c.cfg.Bucket, key, err)
	}
	defer iox.DiscardClose(r)

	f, err := os.OpenFile(req.Target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("gcsbucket: create target: %w", err)
	}
	defer func() {
		if err != nil {
			_ = iox.RemoveIfExists(req.Target)
		}
	}()

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("gcsbucket: copy gs://%s/%s: %w", c.cfg.Bucket, key, err)
	}
	c.cfg.Logger.Debug("gcs object copied", map[string]any{"bucket": c.cfg.Bucket, "key": key, "bytes": n})
	return nil
}

// Close releases the storage client.
func (c *Client) Close() error {
	return c.source.Close()
}

type gcsSource struct {
	client *storage.Client
}

func (s *gcsSource) NewReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *gcsSource) Close() error { return s.client.Close() }
