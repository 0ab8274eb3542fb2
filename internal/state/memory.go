package state

import (
	"context"
	"sync"
)

// MemoryStore keeps batches in process memory. Batches are deep-copied on
// Save and Load, so callers never share records, tags or properties with the
// store.
type MemoryStore struct {
	mu     sync.RWMutex
	cells  map[Key]Batch
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cells: make(map[Key]Batch)}
}

func (s *MemoryStore) Load(_ context.Context, key Key) (Existing, error) {
	if err := validateKey(key); err != nil {
		return Absent(), err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Absent(), ErrClosed
	}
	b, ok := s.cells[key]
	if !ok {
		return Absent(), nil
	}
	return Present(cloneBatch(b)), nil
}

func (s *MemoryStore) Save(_ context.Context, key Key, b Batch) error {
	if err := validateKey(key); err != nil {
		return err
	}
	stored := cloneBatch(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cells[key] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.cells, key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]Key, 0, len(s.cells))
	for k := range s.cells {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cells = nil
	s.mu.Unlock()
	return nil
}
