package objectstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore implements Store against a Google Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
}

// Ensure GCSStore implements Store interface.
var _ Store = (*GCSStore)(nil)

// NewGCSStore creates a client for the given bucket using application
// default credentials.
// PRE: bucket is non-empty; credentials are available in the environment
// POST: Returns a ready-to-use store
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{bucket: client.Bucket(bucket)}, nil
}

// List returns the names of all objects under the given prefix.
// PRE: prefix is non-empty
// POST: Returns object names (possibly none)
func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// Delete removes an object by name. A missing object is not an error.
// PRE: name is non-empty
// POST: No object with the given name exists
func (s *GCSStore) Delete(ctx context.Context, name string) error {
	err := s.bucket.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", name, err)
	}
	return nil
}
