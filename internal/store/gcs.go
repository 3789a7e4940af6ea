package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// GCSStore is a Store backed by one Google Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
}

// NewGCS creates a GCS store. An empty credentials file means application
// default credentials.
func NewGCS(ctx context.Context, bucket string, cfg config.GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return NewGCSWithClient(client, bucket), nil
}

// NewGCSWithClient wraps an existing client.
func NewGCSWithClient(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket), name: bucket}
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]types.SourceObject, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var out []types.SourceObject
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gs://%s/%s: %w", g.name, prefix, err)
		}
		out = append(out, types.SourceObject{Name: attrs.Name, CreatedAt: attrs.Created.UTC()})
	}

	sortObjects(out)
	return out, nil
}

func (g *GCSStore) ReadText(ctx context.Context, name string) (string, error) {
	data, err := g.ReadBytes(ctx, name)
	return string(data), err
}

func (g *GCSStore) ReadBytes(ctx context.Context, name string) ([]byte, error) {
	r, err := g.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", g.name, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening gs://%s/%s: %w", g.name, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading gs://%s/%s: %w", g.name, name, err)
	}
	return data, nil
}

func (g *GCSStore) WriteBytes(ctx context.Context, name string, data []byte) error {
	w := g.bucket.Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", g.name, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing gs://%s/%s: %w", g.name, name, err)
	}
	return nil
}

func (g *GCSStore) WriteText(ctx context.Context, name, text string) error {
	return g.WriteBytes(ctx, name, []byte(text))
}
