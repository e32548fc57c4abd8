// Package blob provides object storage for uploaded claim documents and
// rendered report artifacts: put/get/delete plus time-limited signed download
// URLs. The production backend is Google Cloud Storage; an in-memory backend
// serves single-node dev setups and tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when the referenced object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store is the object-storage boundary used by the pipeline. Refs are
// backend-scoped object keys; callers treat them as opaque.
type Store interface {
	// Put writes data under path and returns the stored object's ref.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// Get reads the object's full contents.
	Get(ctx context.Context, ref string) ([]byte, error)
	// SignedURL returns a time-limited download URL for the object.
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
}

// MemoryStore is an in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, path string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[path] = cp
	return path, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// SignedURL implements Store with a pseudo-URL; there is nothing to sign for
// process-local objects.
func (s *MemoryStore) SignedURL(_ context.Context, ref string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[ref]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://%s?expires=%d", ref, time.Now().Add(ttl).Unix()), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	return nil
}
