// Package storage keeps archived objects (templates, proofs) in a single
// bucket on S3, MinIO or Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound       = errors.New("storage: object not found")
	ErrMissingSigner  = errors.New("storage: signed url signer not configured")
	ErrBucketRequired = errors.New("storage: bucket is required")
)

// Storage is bound to one bucket. Delete of a missing key succeeds.
type Storage interface {
	io.Closer

	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type PutOptions struct {
	// Size of -1 streams an unknown length.
	Size        int64
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
	UpdatedAt   time.Time
}
