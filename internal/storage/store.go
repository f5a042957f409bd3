// Package storage defines the object store gateway used to persist
// feed artifacts. The abstraction keeps the pipeline independent of a
// specific backend (Google Cloud Storage, the local filesystem, or an
// in-memory store for tests).
package storage

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by Store implementations.
var (
	// ErrNamespaceMissing indicates the target bucket/container does
	// not exist. Implementations repair this once internally; callers
	// only observe it when creation itself failed.
	ErrNamespaceMissing = errors.New("storage: namespace does not exist")

	// ErrStorageUnavailable indicates the backend could not be reached.
	ErrStorageUnavailable = errors.New("storage: backend unavailable")

	// ErrObjectNotFound indicates the requested object does not exist.
	ErrObjectNotFound = errors.New("storage: object not found")
)

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// Store is the uniform put/get contract against a key-value blob
// namespace. Put overwrites unconditionally (last-writer-wins) and
// returns the stored object's address. Implementations create the
// namespace on first use: when a write fails because the namespace is
// missing they create it idempotently (a concurrent creator winning
// the race is not an error) and retry the write exactly once. Any
// other failure is surfaced unmodified.
type Store interface {
	Put(ctx context.Context, namespace, key string, data []byte) (string, error)
	Get(ctx context.Context, namespace, key string) ([]byte, error)
}
