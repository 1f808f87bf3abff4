package objectstore

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory object store for development and testing.
// It holds object names only; this engine never reads object contents.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]bool
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]bool)}
}

// Put registers an object name. Used by seeding and tests.
func (s *MemoryStore) Put(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = true
}

// List returns the names of all objects under the given prefix.
// PRE: prefix is non-empty
// POST: Returns object names sorted for determinism
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes an object by name. A missing object is not an error.
// PRE: name is non-empty
// POST: No object with the given name exists
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.objects[name] {
		slog.Debug("objectstore_delete_absent", "name", name)
		return nil
	}
	delete(s.objects, name)
	return nil
}
