package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore implements ObjectStore using the local filesystem.
// Buckets map to directories under basePath. This is primarily used
// for testing and development.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new local filesystem store.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Put writes an object. Keys ending in "/" create directory markers,
// mirroring how console-created S3 folders list. Test helper.
func (l *LocalStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := l.fullPath(bucket, key)
	if strings.HasSuffix(key, "/") {
		return os.MkdirAll(fullPath, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

// ListObjects returns all object keys under the given prefix, sorted
// for determinism. Directory-marker keys are not reconstructed; only
// real files are returned unless a marker was explicitly Put.
func (l *LocalStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucketDir := filepath.Join(l.basePath, bucket)
	var keys []string

	err := filepath.Walk(bucketDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // bucket or prefix doesn't exist, return empty list
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(bucketDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListFailed, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Download copies an object to localPath.
func (l *LocalStore) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath := l.fullPath(bucket, key)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return ErrObjectNotFound
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	return nil
}

func (l *LocalStore) fullPath(bucket, key string) string {
	return filepath.Join(l.basePath, bucket, filepath.FromSlash(key))
}
