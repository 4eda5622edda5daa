package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	bucket string
	client *storage.Client
}

func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCS{bucket: bucket, client: client}, nil
}

func (g *GCS) Store(ctx context.Context, data []byte, folder, name, contentType string) (string, error) {
	ext := path.Ext(name)
	object := strings.Trim(folder, "/") + "/" + uuid.NewString() + ext
	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return object, nil
}

func (g *GCS) URLFor(objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, objectPath)
}

func (g *GCS) Delete(ctx context.Context, objectPath string) error {
	return g.client.Bucket(g.bucket).Object(objectPath).Delete(ctx)
}

func (g *GCS) Close() error {
	return g.client.Close()
}
