package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSStore uploads files to a Google Cloud Storage bucket. Credentials come
// from the usual application-default chain.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket not configured")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *GCSStore) Store(ctx context.Context, localPath, fileName, contentType string) (*StoredMedia, error) {
	name := uniqueName(fileName)
	object := name
	if s.prefix != "" {
		object = s.prefix + "/" + name
	}

	src, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object)
	return &StoredMedia{URL: url, Name: name}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
