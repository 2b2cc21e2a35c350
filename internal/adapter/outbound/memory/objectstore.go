package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/uniedit/enhancer/internal/port/outbound"
)

type object struct {
	data        []byte
	contentType string
}

// ErrObjectNotFound is returned by ObjectStore.Get for unknown keys.
var ErrObjectNotFound = outbound.ErrObjectNotFound

// ObjectStore is an in-process ObjectStorePort.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewObjectStore creates an empty object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]object)}
}

// Put stores a copy of data under key.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Get returns the object stored under key.
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), o.data...), o.contentType, nil
}

// Keys returns all stored keys in order.
func (s *ObjectStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ outbound.ObjectStorePort = (*ObjectStore)(nil)
