// Package storage persists uploaded images and generated heatmaps under
// stable keys and maps those keys to client-facing URLs.
package storage

import (
	"context"
	"io"
)

// Provider is an object store for image files. Keys are slash-separated
// paths relative to the store root (e.g. "images/<id>.jpg").
type Provider interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	GetObject(ctx context.Context, key string) ([]byte, error)

	// URL returns the public URL clients use to fetch the object.
	URL(key string) string
}
