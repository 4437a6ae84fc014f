package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSSource reads blobs from a Cloud Storage bucket.
type GCSSource struct {
	Source
	client *storage.Client
}

// NewGCSSource opens a bucket client. An empty credentialsFile uses the
// ambient application default credentials.
func NewGCSSource(ctx context.Context, bucket, credentialsFile string, logger *slog.Logger) (*GCSSource, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSSource{
		Source: &prefixSource{store: gcsStore{bucket: client.Bucket(bucket)}, logger: logger},
		client: client,
	}, nil
}

// Close releases the storage client.
func (g *GCSSource) Close() error {
	return g.client.Close()
}

type gcsStore struct {
	bucket *storage.BucketHandle
}

func (g gcsStore) list(ctx context.Context, prefix string) ([]string, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (g gcsStore) read(ctx context.Context, name string) ([]byte, error) {
	r, err := g.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
