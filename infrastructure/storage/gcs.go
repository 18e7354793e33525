package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore writes objects to a Google Cloud Storage bucket. Objects are
// expected to be publicly readable through bucket policy.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore uses application default credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.bucket).Object(clean).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %s: %w", clean, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gcs object %s: %w", clean, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, escapePath(clean)), nil
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
