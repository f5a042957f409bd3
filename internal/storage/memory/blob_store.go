// Package memory stores blob content in-memory for development and
// tests, with the same namespace-on-first-use semantics as the real
// backends.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/paperwire/arxiv-ingest/internal/storage"
)

// BlobStore keeps namespaced objects in maps and returns memory:// URIs.
type BlobStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
	creates    int

	// failPut, when set, fails the next Put for a matching key and
	// then clears itself. Used to exercise per-record isolation.
	failPut map[string]error
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		namespaces: make(map[string]map[string][]byte),
		failPut:    make(map[string]error),
	}
}

// Put stores the content under namespace/key, creating the namespace
// if needed, and returns a pseudo URI.
func (s *BlobStore) Put(ctx context.Context, namespace, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", namespace, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failPut[key]; ok {
		delete(s.failPut, key)
		return "", err
	}

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.namespaces[namespace] = ns
		s.creates++
	}
	ns[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s/%s", namespace, key), nil
}

// Get returns a copy of the stored content.
func (s *BlobStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", namespace, key, storage.ErrObjectNotFound)
	}
	data, ok := ns[key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", namespace, key, storage.ErrObjectNotFound)
	}
	return append([]byte(nil), data...), nil
}

// FailNextPut makes the next Put for key return err.
func (s *BlobStore) FailNextPut(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut[key] = err
}

// NamespaceCreates reports how many namespaces were created.
func (s *BlobStore) NamespaceCreates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creates
}

// Len reports the number of objects held in a namespace.
func (s *BlobStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}
