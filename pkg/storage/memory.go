package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps objects in a map. It backs ephemeral stores and tests;
// FailWrites makes every Write return the given error.
type MemoryStorage struct {
	mu         sync.RWMutex
	objects    map[string][]byte
	FailWrites error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Write(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return fmt.Errorf("failed to write %s: %w", path, s.FailWrites)
	}
	s.objects[path] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(s.objects, path)
	return nil
}

func (s *MemoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir := strings.TrimSuffix(prefix, "/") + "/"
	var paths []string
	for p := range s.objects {
		rest, ok := strings.CutPrefix(p, dir)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemoryStorage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}
