// GCS-backed Store implementation.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore stores objects in a single Google Cloud Storage bucket. Signed
// URLs use the client's ambient credentials (IAM SignBlob in production).
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore builds a Store over the given bucket.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("blob: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put implements Store.
func (s *GCSStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("blob: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("blob: finalize %s: %w", path, err)
	}
	return path, nil
}

// Get implements Store.
func (s *GCSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(ref).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blob: open %s: %w", ref, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", ref, err)
	}
	return data, nil
}

// SignedURL implements Store.
func (s *GCSStore) SignedURL(_ context.Context, ref string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(ref, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("blob: sign %s: %w", ref, err)
	}
	return url, nil
}

// Delete implements Store. Missing objects are treated as already deleted.
func (s *GCSStore) Delete(ctx context.Context, ref string) error {
	err := s.client.Bucket(s.bucket).Object(ref).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("blob: delete %s: %w", ref, err)
	}
	return nil
}
