// Package storage provides object storage abstractions for staged
// partition objects.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the store the partitioned engine stages its
// micro-partitions through. Implementations include S3 and the local
// filesystem for single-machine runs and testing.
type ObjectStorage interface {
	// Upload uploads a local file to objectPath in the store.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download fetches objectPath from the store into localPath.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object from the store.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object exists in the store.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	// Used by session cleanup to release every staged partition.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
