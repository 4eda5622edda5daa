// Package storage abstracts the blob store that holds attachment
// bytes. The engine only needs store/url/delete.
package storage

import "context"

type BlobStore interface {
	// Store writes data under folder and returns the object path.
	Store(ctx context.Context, data []byte, folder, name, contentType string) (string, error)
	URLFor(path string) string
	Delete(ctx context.Context, path string) error
}
