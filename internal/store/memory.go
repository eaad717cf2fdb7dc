package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. Content is copied on the way in and out
// so callers cannot alias stored bytes.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Write(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[name] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.slots[name]
	if !ok {
		return nil, notFound(name)
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) Rename(oldName, newName string) error {
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.slots[oldName]
	if !ok {
		return notFound(oldName)
	}
	if _, exists := s.slots[newName]; exists {
		return &ConflictError{OldName: oldName, NewName: newName}
	}
	s.slots[newName] = b
	delete(s.slots, oldName)
	return nil
}

func (s *MemoryStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[name]; !ok {
		return notFound(name)
	}
	delete(s.slots, name)
	return nil
}

func (s *MemoryStore) ListNames() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }
