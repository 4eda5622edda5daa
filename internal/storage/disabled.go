package storage

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("blob store not configured")

// Disabled is used when no bucket is configured: sends with attachments
// fail cleanly and purge-time deletes are no-ops.
type Disabled struct{}

func (Disabled) Store(ctx context.Context, data []byte, folder, name, contentType string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) URLFor(path string) string { return "" }

func (Disabled) Delete(ctx context.Context, path string) error { return nil }
