// Package storage provides object storage abstractions for retrieving
// worker-response objects from cloud storage.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrListFailed     = errors.New("list failed")
	ErrDownloadFailed = errors.New("download failed")
)

// ObjectStore abstracts the object storage collaborator. The fetcher
// only needs listing by prefix and downloads; buckets vary per labeling
// job, so they are call parameters rather than construction state.
// Implementations include S3 and a local filesystem store for testing.
type ObjectStore interface {
	// ListObjects returns all object keys under the given prefix,
	// following pagination until the listing is exhausted. Keys ending
	// in "/" are directory markers.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)

	// Download retrieves one object into localPath, creating parent
	// directories as needed.
	Download(ctx context.Context, bucket, key, localPath string) error
}
