package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
)

// ImmutableCacheControl is set on every stored object. Keys are never
// rewritten in place, so objects can be cached forever.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	ContentType  string
	Size         int64
	ETag         string
	CacheControl string
	LastModified time.Time
}

// PutOptions carries object metadata for writes
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Backend is one bucket of an S3-compatible store
type Backend interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	// Get returns an error matching shared.ErrNotFound when the key does not exist
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// List calls fn for every object under prefix, stopping at the first error
	List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error
	Bucket() string
}

// BackendFactory constructs the backend of a tier from its settings
type BackendFactory func(settings TierSettings) (Backend, error)

// StorageError wraps a backend failure with the operation, tier and key.
// Credentials are never included.
type StorageError struct {
	Op   string
	Tier media.Tier
	Key  string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Tier, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func objectNotFound(bucket, key string) error {
	return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("Object %q not found in bucket %q", key, bucket))
}
