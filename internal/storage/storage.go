// Package storage defines the object store boundary for document
// content and metadata sidecars, with an S3 adapter for production and
// an in-memory store for tests.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for operations on keys that do not exist.
// Implementations must wrap this sentinel so callers can discriminate a
// missing object from transport or permission failures.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a single listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the blob store the gateway persists documents in.
// The bucket is bound at construction; keys are full storage keys as
// produced by the tenant key scheme.
type ObjectStore interface {
	// Put stores body under key, overwriting any existing object.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get returns the full body of the object at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object at key. Deleting a missing key returns
	// an error wrapping ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns all objects whose key starts with prefix, in the
	// store's listing order (lexicographic for S3).
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
