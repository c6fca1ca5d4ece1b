// Package storage provides read access to the object stores that hold frame
// sources: the local filesystem and S3.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/framekit/framekit/internal/config"
	ferrors "github.com/framekit/framekit/internal/errors"
)

// Common errors for storage operations. Both match with errors.Is against
// any storage error carrying the same code.
var (
	ErrObjectNotFound = ferrors.ErrObjectNotFound
	ErrDownloadFailed = ferrors.ErrDownloadFailed
)

// ObjectStorage abstracts read-only object storage.
// Implementations include S3 and the local filesystem.
type ObjectStorage interface {
	// Open returns a reader over the object's bytes. The caller closes it.
	// A missing object fails with ErrObjectNotFound.
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix, sorted.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// New creates the storage backend selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg.Path)
	case "s3":
		return NewS3Storage(ctx, cfg.S3.Bucket, S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func notFound(objectPath string, cause error) error {
	return ferrors.NewStorageError(ferrors.CodeObjectNotFound,
		fmt.Sprintf("object %q not found", objectPath), cause)
}

func downloadFailed(objectPath string, cause error) error {
	return ferrors.NewStorageError(ferrors.CodeDownloadFailed,
		fmt.Sprintf("reading object %q", objectPath), cause)
}
