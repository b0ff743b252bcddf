// internal/storage/storage.go
package storage

import "context"

// ObjectStorage uploads allocation exports for planners to pick up.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
